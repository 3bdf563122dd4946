package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	gcsstorage "cloud.google.com/go/storage"
	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/banking"
	"github.com/reelin/backend/internal/categorise"
	"github.com/reelin/backend/internal/config"
	"github.com/reelin/backend/internal/hmrc"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/metrics"
	"github.com/reelin/backend/internal/rpc"
	"github.com/reelin/backend/internal/search"
	"github.com/reelin/backend/internal/sentryutil"
	"github.com/reelin/backend/internal/service"
	"github.com/reelin/backend/internal/store"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	cfg, loadedDotEnv := config.Load()

	log, err := logging.Init(cfg.LogLevel, cfg.IsLocal())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Sync()
	if loadedDotEnv {
		log.Info("loaded environment from .env")
	}

	sentryutil.Init(cfg.SentryDSN, cfg.SentryEnvironment, cfg.SentryRelease)
	defer sentryutil.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var storeImpl store.Store
	var firebaseAuth *auth.FirebaseAuth

	if cfg.UseMemoryStore {
		// Local development always uses mock authentication.
		log.Info("using in-memory store and mock authentication")
		storeImpl = store.NewMemoryStore()
	} else {
		firestoreClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			log.Fatal("failed to create Firestore client", zap.Error(err))
		}
		defer firestoreClient.Close()
		storeImpl = store.NewFirestoreStore(firestoreClient)

		// SKIP_AUTH keeps Firestore but trusts the debug headers. Seeding and testing only.
		if cfg.SkipAuth {
			log.Warn("SKIP_AUTH enabled, using mock authentication with Firestore")
		} else {
			firebaseAuth, err = auth.NewFirebaseAuth(ctx, cfg.ProjectID)
			if err != nil {
				log.Fatal("failed to initialize Firebase Auth", zap.Error(err))
			}
		}
	}

	m := metrics.New()
	svc := service.NewReelinService(storeImpl)
	svc.SetMetrics(m)
	wireIntegrations(ctx, cfg, svc, firebaseAuth, log)

	interceptors := []connect.Interceptor{
		rpc.RecoverInterceptor(),
		rpc.LoggingInterceptor(nil),
		m.Interceptor(),
		rpc.TimeoutInterceptor(cfg.RequestTimeout),
		// Impersonation goes first so LocalDevInterceptor keeps the chosen user.
		auth.DebugAuthInterceptor(cfg.SkipAuth || firebaseAuth == nil),
	}
	if firebaseAuth != nil {
		interceptors = append(interceptors, auth.AuthInterceptor(firebaseAuth))
	} else {
		interceptors = append(interceptors, auth.LocalDevInterceptor())
	}

	router := rpc.NewRouter(connect.WithInterceptors(interceptors...))
	svc.Register(router)
	path, handler := router.Handler()

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	if cfg.StripeWebhookSecret != "" {
		var claims service.ClaimsUpdater
		if firebaseAuth != nil {
			claims = firebaseAuth
		}
		webhook := service.NewStripeWebhookHandler(storeImpl, cfg.StripeWebhookSecret, claims)
		mux.HandleFunc("/webhooks/stripe", webhook.HandleWebhook)
		log.Info("stripe webhook enabled", zap.String("path", "/webhooks/stripe"))
	}

	// NOTE: Frontend runs on port 1234, not 3000
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Type",
			"User-Agent",
			"X-User-Agent",
			"X-Debug-Impersonate-User",
		},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	log.Info("starting server",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.Int("procedures", len(router.Procedures())))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}

// wireIntegrations attaches every optional integration that has credentials. A
// missing one leaves its RPCs returning CodeUnavailable.
func wireIntegrations(ctx context.Context, cfg *config.Config, svc *service.ReelinService, firebaseAuth *auth.FirebaseAuth, log *zap.Logger) {
	if cfg.GeminiAPIKey != "" {
		gen, err := categorise.NewGenAIGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("LLM categorisation disabled", zap.Error(err))
		} else {
			svc.SetCategorisePipeline(categorise.NewPipeline(categorise.NewLLMClassifier(gen), cfg.CategoriseBatchSize))
			log.Info("LLM categorisation enabled", zap.String("model", cfg.GeminiModel))
		}
	}

	if cfg.BankingEnabled() {
		svc.SetBankingClient(banking.NewClient(banking.Config{
			ClientID:     cfg.BankingClientID,
			ClientSecret: cfg.BankingClientSecret,
			RedirectURL:  cfg.BankingRedirectURL,
			AuthURL:      cfg.BankingAuthURL,
			APIURL:       cfg.BankingAPIURL,
		}, nil))
		log.Info("open banking enabled", zap.String("api", cfg.BankingAPIURL))
	}

	if cfg.HMRCEnabled() {
		svc.SetHMRCClient(hmrc.NewClient(hmrc.Config{
			ClientID:     cfg.HMRCClientID,
			ClientSecret: cfg.HMRCClientSecret,
			RedirectURL:  cfg.HMRCRedirectURL,
			BaseURL:      cfg.HMRCBaseURL,
		}, nil))
		log.Info("HMRC Making Tax Digital enabled", zap.String("base_url", cfg.HMRCBaseURL))
	}

	if cfg.AlgoliaEnabled() {
		algolia, err := search.NewAlgoliaClient(search.Config{
			AppID:     cfg.AlgoliaAppID,
			APIKey:    cfg.AlgoliaAPIKey,
			IndexName: cfg.AlgoliaIndex,
		})
		if err != nil {
			log.Warn("algolia search disabled", zap.Error(err))
		} else {
			svc.SetSearch(algolia, algolia)
			log.Info("algolia search enabled", zap.String("index", cfg.AlgoliaIndex))
		}
	}

	if cfg.ReceiptsBucket != "" && !cfg.UseMemoryStore {
		gcs, err := gcsstorage.NewClient(ctx)
		if err != nil {
			log.Warn("receipt storage disabled", zap.Error(err))
		} else {
			svc.SetReceiptsBucket(gcs.Bucket(cfg.ReceiptsBucket))
			log.Info("receipt storage enabled", zap.String("bucket", cfg.ReceiptsBucket))
		}
	}

	if cfg.StripeEnabled() {
		svc.SetBilling(service.NewStripeClient(cfg.StripeSecretKey, cfg.StripePriceID), cfg.AppBaseURL)
		log.Info("stripe billing enabled")
	}
	if firebaseAuth != nil {
		svc.SetClaimsUpdater(firebaseAuth)
	}
}
