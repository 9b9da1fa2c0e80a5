package config

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/gofrs/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var InstanceId string

// LoadEnv loads ./.env when present. Deployments that set the environment
// directly run without one.
func LoadEnv(service string) {
	log.Infof("%s service configuration and env variables loading started ...", service)
	if err := godotenv.Load("./.env"); err != nil {
		log.Warnf("no .env file loaded: %v", err)
		return
	}

	log.Info(".env file loaded.")
}

func CreateUniqueInstance(service string) string {
	id, err := uuid.NewV4() // instance identifier
	if err != nil {
		log.Fatalf("error generating instanceId: %s", err)
	}
	InstanceId = id.String()
	log.Infof(service+" service with Instance ID: %s is ready", id)
	return id.String()
}

func GetInstanceId() string {
	return InstanceId
}

// NewViper returns a viper reading the environment with the given defaults.
// Only keys with a default are picked up by Unmarshal.
func NewViper(defaults map[string]interface{}) *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SplitList splits a comma separated env value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func CORS(allowedOrigins []string) *cors.Cors {
	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return corsOptions
}

// Logging configures logrus. With dir set, output goes to dir/<service>.log
// as well as stderr.
func Logging(service, dir, format, level string) {
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)

	if dir == "" {
		log.SetOutput(os.Stderr)
		return
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warnf("unable to create folder for log %s", err)
		return
	}

	file, err := os.OpenFile(filepath.Join(dir, service+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}

	log.SetOutput(io.MultiWriter(os.Stderr, file))
	log.Infof("log to file started for service: %s", service)
}

func CustomLoggerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithFields(log.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"method":     r.Method,
					"uri":        r.RequestURI,
					"remote":     r.RemoteAddr,
					"status":     ww.Status(),
					"duration":   time.Since(start).String(),
				}).Info("request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
