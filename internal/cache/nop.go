package cache

import "context"

// NopCache never stores anything; every lookup misses.
type NopCache struct{}

func NewNopCache() *NopCache { return &NopCache{} }

func (NopCache) Get(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }
func (NopCache) Put(context.Context, string, Entry) error         { return nil }
func (NopCache) Invalidate(context.Context, string) error         { return nil }
func (NopCache) Clear(context.Context) error                      { return nil }
func (NopCache) Info(context.Context) (Info, error)               { return Info{Keys: []string{}}, nil }
