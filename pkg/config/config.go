package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config regroupe la configuration de l'application (lecture via Viper depuis
// les variables d'environnement et, optionnellement, un fichier .env).
type Config struct {
	App  AppConfig
	HTTP HTTPConfig
	TEIF TEIFConfig
}

// AppConfig configuration générale de l'application.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// HTTPConfig configuration du serveur HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr retourne l'adresse d'écoute (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TEIFConfig configuration de la facturation électronique TEIF (TTN, Tunisie).
type TEIFConfig struct {
	Environment  string // "1" = production, "2" = test
	CertPath     string // chemin du certificat .pem/.der ou .p12 (vide = signature désactivée)
	CertKeyPath  string // chemin de la clé privée .pem (si CertPath ne la contient pas)
	CertPassword string // mot de passe du .p12 (si CertPath est un .p12)
	SignerRole   string // rôle déclaré dans la signature XAdES (défaut: fournisseur)
}

// Load lit la configuration depuis les variables d'environnement (et
// optionnellement depuis un fichier). Les env vars ont priorité.
// Noms attendus: APP_ENV, HTTP_PORT, TEIF_CERT_PATH, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Optionnel: fichier de configuration (.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // on ignore l'erreur si le fichier n'existe pas

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "facturation-tn"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		TEIF: TEIFConfig{
			Environment:  getString(v, "TEIF_ENVIRONMENT", "2"),
			CertPath:     getString(v, "TEIF_CERT_PATH", ""),
			CertKeyPath:  getString(v, "TEIF_CERT_KEY_PATH", ""),
			CertPassword: getString(v, "TEIF_CERT_PASSWORD", ""),
			SignerRole:   getString(v, "TEIF_SIGNER_ROLE", "fournisseur"),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
