// Package server exposes the work-item engine as a JSON API consumed by
// the portal's forms layer and the chat-assistant front door.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nvlong/workdesk/internal/directory"
	"github.com/nvlong/workdesk/internal/lifecycle"
	"github.com/nvlong/workdesk/internal/notify"
	"github.com/nvlong/workdesk/internal/views"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB          *gorm.DB
	Port        int
	Out         io.Writer
	Dispatcher  *notify.Dispatcher     // side-effect delivery; nil disables
	Subjects    views.SubjectDirectory // display labels; nil disables
	RecentDays  int                    // board window
	PollMinutes int                    // default change-poll window
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, newDeps(opts))

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Workdesk API listening at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// deps bundles what the handlers need.
type deps struct {
	db          *gorm.DB
	dir         *directory.SQL
	mgr         *lifecycle.Manager
	dispatcher  *notify.Dispatcher
	subjects    views.SubjectDirectory
	recentDays  int
	pollMinutes int
}

func newDeps(opts StartOpts) *deps {
	dir := directory.NewSQL(opts.DB)
	subjects := opts.Subjects
	if subjects == nil {
		subjects = views.NopSubjects{}
	}
	recentDays := opts.RecentDays
	if recentDays <= 0 {
		recentDays = 3
	}
	pollMinutes := opts.PollMinutes
	if pollMinutes <= 0 {
		pollMinutes = 15
	}
	return &deps{
		db:          opts.DB,
		dir:         dir,
		mgr:         lifecycle.New(opts.DB, dir),
		dispatcher:  opts.Dispatcher,
		subjects:    subjects,
		recentDays:  recentDays,
		pollMinutes: pollMinutes,
	}
}
