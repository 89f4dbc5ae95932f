// Package remote is the object-store side of the sync engine.
//
// The mirrored bucket is read through core/storage. Every top-level prefix
// under Config.Prefix is a sync root and every deeper "/"-delimited prefix is
// a directory. Directory identities are their prefix keys. A file keeps the
// identity stored in its node-id user metadata when uploads carry one, which
// lets server-side copies survive as moves; otherwise its key is its identity.
//
// Change notifications use MinIO's ListenBucketNotification extension.
package remote
