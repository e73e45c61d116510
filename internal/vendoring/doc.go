// Package vendoring drives the dependency vendoring tool and archives its
// output so the source package builds offline.
package vendoring
