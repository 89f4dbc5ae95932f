package remote

// Config holds configuration for the remote side.
type Config struct {
	// Prefix is the key prefix holding the sync roots, empty for the bucket root.
	Prefix string `mapstructure:"prefix" default:""`
	// VolumeID is stamped on every remote identity.
	VolumeID uint32 `mapstructure:"volume_id" default:"1"`
	// NodeIDKey is the user-metadata key carrying a stable node identity.
	NodeIDKey string `mapstructure:"node_id_key" default:"Node-Id"`
	// Notifications enables the bucket notification change feed.
	Notifications bool `mapstructure:"notifications" default:"true"`
}
