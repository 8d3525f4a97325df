package config

// BuildVersion is set at build time via ldflags
var BuildVersion = "development"
