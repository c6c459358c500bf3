package model

import "time"

// Site is one blog of a multisite network.
type Site struct {
	ID          int64     `mapstructure:"blog_id"`
	NetworkID   int64     `mapstructure:"site_id"`
	Domain      string    `mapstructure:"domain"`
	Path        string    `mapstructure:"path"`
	Registered  time.Time `mapstructure:"registered"`
	LastUpdated time.Time `mapstructure:"last_updated"`
	Public      bool      `mapstructure:"public"`
	Archived    bool      `mapstructure:"archived"`
	Mature      bool      `mapstructure:"mature"`
	Spam        bool      `mapstructure:"spam"`
	Deleted     bool      `mapstructure:"deleted"`
	LangID      int       `mapstructure:"lang_id"`
}

// Exists reports whether the site is backed by a stored row.
func (s *Site) Exists() bool { return s != nil && s.ID > 0 }

// Network groups sites under one domain.
type Network struct {
	ID     int64  `mapstructure:"id"`
	Domain string `mapstructure:"domain"`
	Path   string `mapstructure:"path"`
}

// Exists reports whether the network is backed by a stored row.
func (n *Network) Exists() bool { return n != nil && n.ID > 0 }
