// Package local is the local file-system side of the sync engine.
//
// Every directory directly under the configured base path is a sync root.
// Identities are inode numbers on the device holding the base path, so a
// rename or move keeps its identity and is detected as one update. File
// systems without inodes (afero.MemMapFs in tests) fall back to a hash of the
// path, which turns moves into delete plus create.
//
// Source implements reconcile.Source and reconcile.RootSource over an
// afero.Fs. Watcher implements reconcile.ChangeSource with fsnotify and only
// works on the OS file system.
package local
