package history

import (
	"context"
	"log"

	"maxprompt-server/modules/common/database"
	"maxprompt-server/modules/common/model"
	"maxprompt-server/modules/common/storage"
	"maxprompt-server/modules/common/utils"
)

// Service records finished generations and serves them back. A nil
// Service is valid and turns every call into a no-op, which is how the
// server runs without Supabase.
type Service struct {
	db      *database.Client
	storage *storage.Client
}

func NewService(db *database.Client, st *storage.Client) *Service {
	if db == nil {
		return nil
	}
	return &Service{db: db, storage: st}
}

// Record persists one generation outcome. previewImage may be nil (video
// jobs, failures). Recording is best-effort: a history hiccup never fails
// the generation that triggered it.
func (s *Service) Record(ctx context.Context, record *model.Generation, previewImage []byte) {
	if s == nil {
		return
	}

	if previewImage != nil {
		path, size, err := s.storage.UploadPreview(ctx, previewImage, record.UserID, utils.ConvertImageToWebP)
		if err != nil {
			log.Printf("⚠️  [History] Preview upload failed: %v", err)
		} else {
			record.PreviewPath = &path
			record.SizeBytes = size
		}
	}

	if err := s.db.InsertGeneration(record); err != nil {
		log.Printf("⚠️  [History] Failed to record generation: %v", err)
		return
	}
	log.Printf("📚 [History] Recorded %s generation for user %s (%s)",
		record.Kind, record.UserID, record.Status)
}

// Item is one history entry as the API returns it: the stored record plus
// the resolved public address of its preview, when one was uploaded.
type Item struct {
	model.Generation
	PreviewURL string `json:"preview_url,omitempty"`
}

// List returns a user's recent generations, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Item, error) {
	if s == nil {
		return []Item{}, nil
	}
	records, err := s.db.ListGenerations(userID, limit)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(records))
	for _, record := range records {
		item := Item{Generation: record}
		if record.PreviewPath != nil {
			item.PreviewURL = storage.PublicURL(*record.PreviewPath)
		}
		items = append(items, item)
	}
	return items, nil
}

// Enabled reports whether history is backed by a real store.
func (s *Service) Enabled() bool {
	return s != nil
}
