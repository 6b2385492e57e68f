package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/chatcat/data/chats.db"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 100
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 1000
	}
	if cfg.Search.MaxExportRows == 0 {
		cfg.Search.MaxExportRows = 10000
	}
}
