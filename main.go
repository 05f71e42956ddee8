package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"maxprompt-server/modules/common/config"
	"maxprompt-server/modules/common/credstore"
	"maxprompt-server/modules/common/database"
	"maxprompt-server/modules/common/model"
	redisClient "maxprompt-server/modules/common/redis"
	"maxprompt-server/modules/common/storage"
	"maxprompt-server/modules/credential"
	"maxprompt-server/modules/generate"
	"maxprompt-server/modules/history"
	"maxprompt-server/modules/progress"
	"maxprompt-server/modules/video"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	rdb := redisClient.Connect(cfg)
	if rdb == nil {
		log.Fatal("❌ Failed to connect to Redis")
	}

	ctx := context.Background()

	// credential slot, optionally seeded from the environment
	creds := credstore.New(&credstore.RedisKV{Client: rdb})
	if err := creds.Seed(ctx, cfg.GeminiAPIKey); err != nil {
		log.Printf("⚠️  Failed to seed credential: %v", err)
	}

	// history is optional; without Supabase it degrades to a no-op
	historyService := history.NewService(database.NewClient(), storage.NewClient())
	if historyService.Enabled() {
		log.Println("📚 History enabled")
	} else {
		log.Println("📚 History disabled (Supabase not configured)")
	}

	hub := progress.NewHub()

	// synchronous image path
	generateService := generate.NewService(generate.NewGeminiBackend(cfg))
	generateHandler := generate.NewHandler(generateService, creds, historyService)

	// asynchronous video path
	jobStore := video.NewJobStore(rdb)
	upstream := video.NewGeminiUpstream(cfg)
	poller := video.NewPoller(upstream, video.PollerConfig{
		Interval: cfg.VideoPollInterval,
		Ceiling:  cfg.VideoPollCeiling,
	})
	videoService := video.NewService(jobStore, upstream, poller, creds)
	videoService.SetNotifier(func(job *video.Job) {
		if !videoService.Dismissed(job.JobID) {
			hub.Publish(job.JobID, job.View())
		}
		if job.Status.Terminal() {
			recordVideoOutcome(historyService, job)
		}
	})
	videoService.OnDismiss(hub.Detach)
	videoHandler := video.NewHandler(videoService)

	credentialHandler := credential.NewHandler(creds)
	historyHandler := history.NewHandler(historyService)

	go video.StartWorker(ctx, videoService)

	r := mux.NewRouter()
	r.Use(enableCORS)
	r.Use(limitBody(cfg.MaxUploadSize))

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")

	r.HandleFunc("/api/credential", credentialHandler.HandleCredential).Methods("GET", "POST", "DELETE", "OPTIONS")
	r.HandleFunc("/api/generate/image", generateHandler.GenerateImage).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/generate/video", videoHandler.SubmitVideo).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/jobs/{jobId}", videoHandler.GetJobStatus).Methods("GET")
	r.HandleFunc("/api/jobs/{jobId}/download", videoHandler.DownloadVideo).Methods("GET")
	r.HandleFunc("/api/jobs/{jobId}/dismiss", videoHandler.DismissJob).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/history", historyHandler.ListHistory).Methods("GET")
	r.HandleFunc("/ws/jobs/{jobId}", hub.HandleJobSocket)

	log.Printf("🚀 MaxPrompt server starting on port %s", cfg.Port)
	log.Printf("📡 Job progress endpoint: ws://localhost:%s/ws/jobs/{jobId}", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func recordVideoOutcome(historyService *history.Service, job *video.Job) {
	record := &model.Generation{
		UserID:      job.UserID,
		Kind:        "video",
		Prompt:      job.Prompt,
		AspectRatio: job.AspectRatio,
		Status:      string(job.Status),
	}
	if job.ErrorKind != "" {
		errorKind := job.ErrorKind
		record.ErrorKind = &errorKind
	}
	if job.Video != nil {
		if raw, err := job.Video.Decode(); err == nil {
			record.SizeBytes = int64(len(raw))
		}
	}
	go historyService.Record(context.Background(), record, nil)
}

// limitBody caps request bodies so an oversized upload fails fast instead
// of exhausting memory.
func limitBody(maxBytes int64) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "maxprompt-server",
	})
}
