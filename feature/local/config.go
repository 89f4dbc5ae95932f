package local

// Config holds configuration for the local side.
type Config struct {
	// Path is the directory whose subdirectories are the sync roots.
	Path string `mapstructure:"path" default:"./sync"`
	// VolumeID overrides the volume derived from the device number.
	VolumeID uint32 `mapstructure:"volume_id" default:"0"`
	// Watch enables the fsnotify change feed.
	Watch bool `mapstructure:"watch" default:"true"`
	// DebounceMillis groups file-system events into one batch.
	DebounceMillis int `mapstructure:"debounce_millis" default:"250"`
}
