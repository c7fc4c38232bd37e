package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kehindes/groupspace/internal/auth"
	"github.com/kehindes/groupspace/internal/data"
	"github.com/kehindes/groupspace/internal/db"
	"github.com/kehindes/groupspace/internal/hub"
	"github.com/kehindes/groupspace/internal/middleware"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Read configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		logger.Fatal("MONGODB_URI must be set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	jwtKeysEnv := os.Getenv("JWT_KEYS") // optional: format kid:secret,kid2:secret2
	jwtActiveKid := os.Getenv("JWT_ACTIVE_KID")
	if jwtKeysEnv == "" && jwtSecret == "" {
		logger.Fatal("either JWT_SECRET or JWT_KEYS must be set")
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()

	dbClient, err := db.New(ctx, mongoURI)
	if err != nil {
		logger.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer func() {
		_ = dbClient.Close(ctx)
	}()

	// Ensure indexes exist
	if err := dbClient.CreateIndexes(ctx); err != nil {
		logger.Fatal("failed to create indexes", zap.Error(err))
	}

	usersStore := data.NewUsersStore(dbClient.UsersCollection())
	groupsStore := data.NewGroupsStore(dbClient.GroupsCollection())
	msgsStore := data.NewMessagesStore(dbClient.MessagesCollection())
	notesStore := data.NewNotesStore(dbClient.NotesCollection(), dbClient.NoteHistoryCollection())
	tasksStore := data.NewTasksStore(dbClient.TasksCollection())

	// Token manager (tokens valid for 24 hours). If JWT_KEYS is supplied we
	// parse kid:secret pairs so key rotation is possible; otherwise fall
	// back to the single JWT_SECRET value.
	var jwtMgr *auth.JWTManager
	if jwtKeysEnv != "" {
		keyMap := map[string]string{}
		for _, p := range strings.Split(jwtKeysEnv, ",") {
			if p == "" {
				continue
			}
			parts := strings.SplitN(p, ":", 2)
			if len(parts) != 2 {
				logger.Fatal("invalid JWT_KEYS entry", zap.String("entry", p))
			}
			keyMap[parts[0]] = parts[1]
		}
		jwtMgr = auth.NewJWTManagerFromKeys(keyMap, jwtActiveKid, 24*time.Hour)
	} else {
		jwtMgr = auth.NewJWTManager(jwtSecret, 24*time.Hour)
	}

	// External sign-in is optional: without a Google client id the
	// /auth/external endpoint reports itself unavailable.
	var identity auth.IdentityVerifier
	if clientID := os.Getenv("GOOGLE_CLIENT_ID"); clientID != "" {
		identity = auth.NewGoogleVerifier(clientID)
	}

	// Auth endpoints get a stricter limit than the rest of the API; both
	// allow a small burst so quick retries are not punished.
	authRPM := envInt("AUTH_RATE_LIMIT_RPM", 10)
	apiRPM := envInt("API_RATE_LIMIT_RPM", 120)
	authLimiter := middleware.NewLimiterStore(authRPM, 3, 1*time.Minute)
	defer authLimiter.Stop()
	apiLimiter := middleware.NewLimiterStore(apiRPM, 20, 1*time.Minute)
	defer apiLimiter.Stop()

	srv := newServer(usersStore, groupsStore, msgsStore, notesStore, tasksStore, jwtMgr, identity, hub.New(), dbClient, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.routes(authLimiter, apiLimiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server exit", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
