package video

import (
	"context"
	"log"
	"time"
)

// StartWorker watches the video queue and processes jobs as they arrive.
// Each job runs in its own goroutine; the per-user slot keeps any single
// user down to one in-flight job.
func StartWorker(ctx context.Context, service *Service) {
	log.Println("🔄 Video worker starting...")
	log.Printf("👀 Watching queue: %s", queueKey)

	for {
		jobID, err := service.store.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("🛑 Video worker stopping")
				return
			}
			log.Printf("❌ Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		log.Printf("🎯 Received video job: %s", jobID)
		go func(id string) {
			if err := service.Process(ctx, id); err != nil {
				log.Printf("❌ Video job %s failed: %v", id, err)
			}
		}(jobID)
	}
}
