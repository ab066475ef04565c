// Package integrationtests runs the whole pipeline against fake external
// tools, an in-memory metadata store and the local executor.
package integrationtests
