package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/logger"
	"campusmarket/backend/internal/messaging"
	"campusmarket/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *storage.Service
}

// open connects to PostgreSQL, and to Redis only when withRedis is set.
func (a *app) open(ctx context.Context, withRedis bool) error {
	db, err := gorm.Open(postgres.Open(a.cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	var rdb *redis.Client
	if withRedis {
		rdb = redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr, Password: a.cfg.Redis.Password, DB: a.cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}
	a.store = storage.NewStorageService(db, rdb, a.log)
	return nil
}

func main() {
	_ = godotenv.Load()
	a := &app{}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operator tasks for the campus marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log, err = logger.New(true)
			return err
		},
	}
	root.PersistentFlags().String("config", os.Getenv("APP_CONFIG"), "path to the config file")

	root.AddCommand(migrateCmd(a), conversationsCmd(a), itemCmd(a), ratelimitCmd(a))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context(), false); err != nil {
				return err
			}
			if err := a.store.Migrate(); err != nil {
				return err
			}
			fmt.Println("migrations complete")
			return nil
		},
	}
}

func conversationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations <user_id>",
		Short: "List a user's conversation partners",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID := args[0]
			if !messaging.IsUUID(userID) {
				return fmt.Errorf("%q is not a UUID", userID)
			}
			if err := a.open(cmd.Context(), false); err != nil {
				return err
			}
			agg := messaging.NewAggregator(messaging.NewGateway(a.store, a.store, a.log), a.log)
			list := agg.ListConversations(cmd.Context(), userID, "")
			if len(list) == 0 {
				fmt.Println("no conversations")
				return nil
			}
			for _, c := range list {
				fmt.Printf("%s\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func itemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "item", Short: "Moderate listings"}
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <item_id>",
		Short: "Delete a listing and its likes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !messaging.IsUUID(args[0]) {
				return fmt.Errorf("%q is not a UUID", args[0])
			}
			if err := a.open(cmd.Context(), false); err != nil {
				return err
			}
			if err := a.store.DeleteItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("item %s removed\n", args[0])
			return nil
		},
	})
	return cmd
}

func ratelimitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "ratelimit", Short: "Inspect Redis-backed rate limit windows"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show active windows with their counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context(), true); err != nil {
				return err
			}
			return listWindows(cmd.Context(), a.store.Redis)
		},
	}, &cobra.Command{
		Use:   "reset <key>",
		Short: "Delete one window, e.g. ratelimit:send:send_<user_id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), true); err != nil {
				return err
			}
			n, err := a.store.Redis.Del(cmd.Context(), args[0]).Result()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d key(s)\n", n)
			return nil
		},
	})
	return cmd
}

func listWindows(ctx context.Context, rdb *redis.Client) error {
	iter := rdb.Scan(ctx, 0, "ratelimit:*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		count, err := rdb.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		ttl, err := rdb.TTL(ctx, key).Result()
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\n", key, count, ttl.Round(time.Second))
	}
	return iter.Err()
}
