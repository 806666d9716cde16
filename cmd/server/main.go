package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harikrishna-au/codetogetherfull/internal/cache"
	"github.com/harikrishna-au/codetogetherfull/internal/config"
	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/repository"
	"github.com/harikrishna-au/codetogetherfull/internal/service"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/rest"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// storage: in-memory always, write-through to Mongo when configured
	mem := repository.NewMemoryStore()
	var sessionStore repository.SessionStore = mem
	var roomStore repository.RoomStore = mem
	if cfg.MongoURI != "" {
		client, err := connectMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("mongo connect failed: %v", err)
		}
		defer client.Disconnect(context.Background())
		db := client.Database(cfg.MongoDB)
		sessionStore = repository.NewCachedSessionStore(mem, repository.NewMongoSessionStore(db))
		roomStore = repository.NewCachedRoomStore(mem, repository.NewMongoRoomStore(db))
		log.Printf("mongo connected, database %s", cfg.MongoDB)
	}

	var sessionCache cache.SessionCache
	var roomCache cache.RoomCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("redis unreachable, continuing without cache: %v", err)
		} else {
			sessionCache = cache.NewSessionCache(rdb)
			roomCache = cache.NewRoomCache(rdb)
			log.Printf("redis connected at %s", cfg.RedisAddr)
		}
	}

	queues := service.NewQueueService()
	sessions := service.NewSessionService(sessionStore, sessionCache)
	rooms := service.NewRoomService(roomStore, roomCache, cfg.RoomDuration, cfg.RoomRetention)
	auth := service.NewAuthService(cfg.JWTSecret, nil)
	match := service.NewMatchService(queues, sessions, rooms, service.NewStaticContentStore(50))

	hub := ws.NewHub()
	match.SetBroadcaster(hub)
	gateway := ws.NewHandler(hub, auth, sessions, rooms, match, cfg.DisconnectGrace)

	// when a room reaches a terminal state, release its sessions and tell
	// every remaining participant
	rooms.SetOnEnded(func(room *model.Room) {
		ids := room.ParticipantIDs()
		for _, id := range ids {
			if _, err := sessions.Transition(ctx, id, model.EventRoomEnded, service.TransitionData{}); err != nil && err != service.ErrInvalidTransition && err != service.ErrSessionNotFound {
				log.Printf("room-ended transition failed for %s: %v", id, err)
			}
		}
		hub.BroadcastToSessions(ids, ws.EvtRoomClosed, ws.RoomClosedPayload{
			RoomID: room.ID,
			Reason: room.EndReason,
		})
	})

	// background maintenance
	queues.StartSweeper(ctx, cfg.QueueSweepInterval, cfg.QueueStaleAge, func(sessionIDs []string) {
		for _, id := range sessionIDs {
			if _, err := sessions.Transition(ctx, id, model.EventLeaveQueue, service.TransitionData{}); err != nil && err != service.ErrInvalidTransition && err != service.ErrSessionNotFound {
				log.Printf("queue eviction transition failed for %s: %v", id, err)
			}
		}
	})
	sessions.StartSweeper(ctx, cfg.SessionSweepInterval, cfg.SessionIdleThreshold, func(sessionID string) {
		match.LeaveQueue(ctx, sessionID)
		if _, err := rooms.RemoveParticipant(ctx, sessionID, model.EndInactivity); err != nil && err != service.ErrRoomNotFound && err != service.ErrRoomClosed {
			log.Printf("session sweep room cleanup failed for %s: %v", sessionID, err)
		}
	})
	rooms.StartSweeper(ctx, cfg.RoomSweepInterval, cfg.RoomIdleThreshold)
	gateway.StartQueueCountsTicker(ctx, cfg.QueueCountsInterval)

	router := rest.NewRouter(&rest.Container{
		Auth:     auth,
		Sessions: sessions,
		Rooms:    rooms,
		Match:    match,
		Queues:   queues,
		Gateway:  gateway,
		AdminKey: cfg.AdminKey,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("server stopped")
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, err
	}
	return client, nil
}
