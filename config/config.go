package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	DataDir      string
	EvidenceDir  string
	StoreBackend string
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: os.Getenv("DB_NAME"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         os.Getenv("PORT"),
		DataDir:      os.Getenv("DATA_DIR"),
		EvidenceDir:  os.Getenv("EVIDENCE_DIR"),
		StoreBackend: os.Getenv("STORE_BACKEND"),
	}

}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err. Server-side failures keep their error
// detail in the log only, clients just get the message.
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	response := message
	if httpStatusCode < http.StatusInternalServerError && err != nil {
		response = fmt.Sprintf("%s, %v", message, err)
	}
	body, _ := json.Marshal(map[string]string{"response": response})
	w.WriteHeader(httpStatusCode)
	w.Write(body)
}
