package main

import (
	"fmt"
	"reflect"
	"time"

	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/spf13/cobra"
)

var cacheBroadcast bool

// cacheCmd operates on the collection caches
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and reload cached collections",
}

// cacheWarmCmd loads every collection and tells running servers to reload
var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Load every collection and announce a reload",
	Long: `Load every cached collection from the database and print its size.

With --broadcast (the default) a reload of all collections is published on
the invalidation channel, so running servers sharing the same Redis refetch
their caches. Without Redis the announcement stays in this process.`,
	Args: cobra.NoArgs,
	RunE: runCacheWarm,
}

func init() {
	cacheWarmCmd.Flags().BoolVar(&cacheBroadcast, "broadcast", true, "Announce the reload to running servers")
	cacheCmd.AddCommand(cacheWarmCmd)
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	start := time.Now()
	results, err := s.dm.InvalidateAll(ctx)
	if err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	out := cmd.OutOrStdout()
	for i, c := range cache.AllCollections() {
		fmt.Fprintf(out, "%-16s %d\n", c, itemCount(results[i]))
	}
	fmt.Fprintf(out, "loaded in %s\n", time.Since(start).Round(time.Millisecond))

	if !cacheBroadcast {
		return nil
	}
	broadcaster := cache.NewBroadcaster(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Cache.InvalidationChannel, log)
	defer func() { _ = broadcaster.Close() }()

	if err := cache.NewSyncer(s.dm, broadcaster, log).Broadcast(ctx, cache.AllCollections()...); err != nil {
		return fmt.Errorf("announce reload: %w", err)
	}
	if cfg.Redis.Enabled() {
		fmt.Fprintf(out, "reload announced on %s\n", cfg.Cache.InvalidationChannel)
	}
	return nil
}

// itemCount returns the length of a list collection, or 1 for a loaded value
func itemCount(v any) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Len()
	case reflect.Invalid:
		return 0
	case reflect.Pointer:
		if rv.IsNil() {
			return 0
		}
	}
	return 1
}
