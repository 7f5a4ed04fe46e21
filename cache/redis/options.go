package redis

import "time"

// Options controls how the Redis cache store connects to the server and
// namespaces its keys.
type Options struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	// Prefix is prepended to every key so several clients can share a
	// database without seeing each other's entries.
	Prefix string
	// Channel carries change notifications between writers sharing Prefix.
	Channel string
	// ScanCount is the COUNT hint used when enumerating keys.
	ScanCount int64
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = "127.0.0.1:6379"
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 2 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 2 * time.Second
	}
	if o.DB < 0 {
		o.DB = 0
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 8
	}
	if o.Prefix == "" {
		o.Prefix = "shopcache:"
	}
	if o.Channel == "" {
		o.Channel = o.Prefix + "changes"
	}
	if o.ScanCount <= 0 {
		o.ScanCount = 100
	}
	return o
}
