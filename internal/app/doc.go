// Package app contains the application lifecycle: it loads the pipeline
// configuration, opens the metadata store, the notifier and the job
// platform, and runs the requested stages in order.
package app
