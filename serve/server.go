package serve

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"depthcam/video"
)

// NewHandler routes the status endpoints:
//
//	/metrics   prometheus
//	/status    latest session status (JSON)
//	/statusws  status updates over websocket
//	/sessions  recordings on disk (JSON)
//	/catalog   cataloged sessions (JSON), only when cat is not nil
func NewHandler(fs *video.Filesystem, status *StatusUpdater, cat SessionCatalog) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", status.ServeStatus)
	mux.Handle("/statusws", status)
	mux.Handle("/sessions", &SessionServer{FS: fs})
	if cat != nil {
		mux.Handle("/catalog", &CatalogServer{Catalog: cat})
	}
	return handlers.LoggingHandler(log.StandardLogger().Writer(), mux)
}

// ListenAndServe hosts h on port in the background.
func ListenAndServe(port int, h http.Handler) *http.Server {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: h,
	}
	go func() {
		log.Infof("Hosting status on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Status server failed: %v", err)
		}
	}()
	return srv
}
