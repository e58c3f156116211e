package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	firebase "firebase.google.com/go/v4"
	"github.com/kelseyhightower/envconfig"
	"github.com/suteetoe/backoffice/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ServiceAccount holds the service account fields read from FIREBASE_* variables
type ServiceAccount struct {
	Type                    string `envconfig:"TYPE" json:"type"`
	ProjectID               string `envconfig:"PROJECT_ID" json:"project_id"`
	PrivateKeyID            string `envconfig:"PRIVATE_KEY_ID" json:"private_key_id"`
	PrivateKey              string `envconfig:"PRIVATE_KEY" json:"private_key"`
	ClientEmail             string `envconfig:"CLIENT_EMAIL" json:"client_email"`
	ClientID                string `envconfig:"CLIENT_ID" json:"client_id"`
	AuthURI                 string `envconfig:"AUTH_URI" json:"auth_uri"`
	TokenURI                string `envconfig:"TOKEN_URI" json:"token_uri"`
	AuthProviderX509CertURL string `envconfig:"AUTH_PROVIDER_X509_CERT_URL" json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `envconfig:"CLIENT_X509_CERT_URL" json:"client_x509_cert_url"`
	UniverseDomain          string `envconfig:"UNIVERSE_DOMAIN" json:"universe_domain"`
}

func (s *ServiceAccount) missing() []string {
	fields := []struct{ name, value string }{
		{"FIREBASE_TYPE", s.Type},
		{"FIREBASE_PROJECT_ID", s.ProjectID},
		{"FIREBASE_PRIVATE_KEY_ID", s.PrivateKeyID},
		{"FIREBASE_PRIVATE_KEY", s.PrivateKey},
		{"FIREBASE_CLIENT_EMAIL", s.ClientEmail},
		{"FIREBASE_TOKEN_URI", s.TokenURI},
	}
	var out []string
	for _, f := range fields {
		if f.value == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// LoadCredentials resolves the push credentials from FIREBASE_* variables, then from
// fallbackFile. ok is false when neither source is usable.
func LoadCredentials(fallbackFile string, log *zap.Logger) (opt option.ClientOption, projectID string, ok bool) {
	var sa ServiceAccount
	if err := envconfig.Process("firebase", &sa); err != nil {
		log.Warn("Failed to read Firebase environment", zap.Error(err))
	}

	missing := sa.missing()
	if len(missing) == 0 {
		// Keys pasted into env files usually carry literal \n sequences
		sa.PrivateKey = strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")
		body, err := json.Marshal(sa)
		if err == nil {
			log.Info("Firebase credentials loaded from environment")
			return option.WithCredentialsJSON(body), sa.ProjectID, true
		}
		log.Warn("Failed to encode Firebase credentials", zap.Error(err))
	} else {
		log.Warn("Firebase environment incomplete", zap.Strings("missing", missing))
	}

	if fallbackFile != "" {
		if _, err := os.Stat(fallbackFile); err == nil {
			log.Info("Using fallback Firebase credentials file", zap.String("path", fallbackFile))
			return option.WithCredentialsFile(fallbackFile), "", true
		}
	}

	log.Warn("No Firebase credentials found, low stock push notifications are disabled")
	return nil, "", false
}

// NewFirebase builds a notifier on an initialized messaging client
func NewFirebase(ctx context.Context, opt option.ClientOption, projectID string, tokens TokenLookup, log *zap.Logger) (*Firebase, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("notify: init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify: init messaging client: %w", err)
	}
	return &Firebase{client: client, tokens: tokens, log: log}, nil
}

// Setup returns a Firebase notifier when credentials are available and Noop otherwise.
// It never fails start-up.
func Setup(ctx context.Context, cfg config.FirebaseConfig, tokens TokenLookup, log *zap.Logger) Notifier {
	opt, projectID, ok := LoadCredentials(cfg.CredentialsFile, log)
	if !ok {
		return Noop{}
	}
	n, err := NewFirebase(ctx, opt, projectID, tokens, log)
	if err != nil {
		log.Error("Failed to initialize Firebase, low stock push notifications are disabled", zap.Error(err))
		return Noop{}
	}
	log.Info("Firebase messaging initialized")
	return n
}
