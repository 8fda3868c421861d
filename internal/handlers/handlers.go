package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"echolog/api/internal/config"
	"echolog/api/internal/email"
	"echolog/api/internal/middleware"
	"echolog/api/internal/models"
	"echolog/api/internal/service"
	"echolog/api/internal/storage"
)

type HandlerSet struct {
	log        zerolog.Logger
	cfg        *config.AppConfig
	auth       *service.AuthService
	usage      *service.UsageService
	resolver   *service.IdentityResolver
	recordings *service.RecordingService
	transcribe *service.TranscribeService
	analysis   *service.AnalysisService
	qa         *service.QAService
	store      *storage.ObjectStore
	mailer     *email.Mailer
	db         *pgxpool.Pool
	cache      *redis.Client
}

type Services struct {
	Auth       *service.AuthService
	Usage      *service.UsageService
	Resolver   *service.IdentityResolver
	Recordings *service.RecordingService
	Transcribe *service.TranscribeService
	Analysis   *service.AnalysisService
	QA         *service.QAService
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	svcs Services,
	store *storage.ObjectStore,
	mailer *email.Mailer,
	db *pgxpool.Pool,
	cache *redis.Client,
) HandlerSet {
	return HandlerSet{
		log:        log,
		cfg:        cfg,
		auth:       svcs.Auth,
		usage:      svcs.Usage,
		resolver:   svcs.Resolver,
		recordings: svcs.Recordings,
		transcribe: svcs.Transcribe,
		analysis:   svcs.Analysis,
		qa:         svcs.QA,
		store:      store,
		mailer:     mailer,
		db:         db,
		cache:      cache,
	}
}

func (h HandlerSet) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(middleware.Identity(h.resolver))

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireIdentity(), middleware.RequireAdmin())
	{
		admin.GET("/users", h.AdminListUsers)
		admin.POST("/add-balance", h.AdminAddBalance)
	}

	authed := v1.Group("")
	authed.Use(middleware.RequireIdentity())
	{
		authed.POST("/recordings", h.CreateRecording)
		authed.GET("/recordings/:recordingID", h.GetRecording)
		authed.GET("/recordings/:recordingID/transcript", h.ListTranscript)
		authed.DELETE("/recordings/:recordingID", h.DeleteRecording)

		authed.POST("/storage/upload-url", h.UploadURL)
		authed.GET("/storage/download-url/:recordingID", h.DownloadURL)

		authed.GET("/transcribe/query/:taskID", h.QueryTranscribe)
		authed.POST("/transcribe/wait-and-save", h.WaitAndSaveTranscript)

		authed.GET("/analysis/:recordingID", h.GetAnalysis)
	}

	// Gated actions: one unit of quota per successful call.
	gated := v1.Group("")
	gated.Use(middleware.RequireIdentity(), middleware.RequireQuota())
	{
		gated.POST("/transcribe/start", h.StartTranscribe)
		gated.POST("/qa", h.QA)
		gated.POST("/pipeline/full-test", h.PipelineFullTest)
	}
}

// consumeUnit charges the resolved identity one unit. Called only after the
// gated action has completed successfully; a failed action costs nothing.
func (h HandlerSet) consumeUnit(c *gin.Context) error {
	ident, ok := middleware.IdentityFromContext(c)
	if !ok {
		return nil
	}

	ctx := c.Request.Context()
	switch ident.Kind {
	case models.IdentityKindGuest:
		_, err := h.usage.ConsumeGuest(ctx, ident.GuestID)
		return err
	case models.IdentityKindUser:
		_, err := h.usage.ConsumeUser(ctx, ident.UserID)
		return err
	}
	return nil
}
