package database

import (
	"fmt"
	"log"
	"sort"

	"github.com/supabase-community/supabase-go"

	"maxprompt-server/modules/common/config"
	"maxprompt-server/modules/common/model"
)

const generationsTable = "studio_generations"

type Client struct {
	supabase *supabase.Client
}

// NewClient builds a Supabase client, or nil when Supabase is not
// configured and the history feature is disabled.
func NewClient() *Client {
	cfg := config.GetConfig()
	if cfg.SupabaseURL == "" {
		return nil
	}

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{supabase: supabaseClient}
}

// InsertGeneration records one finished generation.
func (c *Client) InsertGeneration(record *model.Generation) error {
	_, _, err := c.supabase.From(generationsTable).
		Insert(record, false, "", "", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert generation record: %w", err)
	}
	return nil
}

// ListGenerations returns a user's history, newest first.
func (c *Client) ListGenerations(userID string, limit int) ([]model.Generation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var records []model.Generation
	_, err := c.supabase.From(generationsTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Limit(limit, "").
		ExecuteTo(&records)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}

	// timestamps are RFC3339, so a string sort is chronological
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt > records[j].CreatedAt
	})
	return records, nil
}
