package properties

import (
	"os"
	"strings"
)

const (
	defaultTokenURL   = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"
	defaultClientID   = "cdse-public"
	defaultCatalogURL = "https://catalogue.dataspace.copernicus.eu/odata/v1"
	defaultZipperURL  = "https://zipper.dataspace.copernicus.eu/odata/v1"
)

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// TokenURL is the OpenID Connect token endpoint of the Copernicus Data Space identity realm.
func TokenURL() string {
	return getenv("CDSE_TOKEN_URL", defaultTokenURL)
}

func ClientID() string {
	return getenv("CDSE_CLIENT_ID", defaultClientID)
}

// CatalogURL is the OData root used for product queries.
func CatalogURL() string {
	return strings.TrimRight(getenv("CDSE_CATALOG_URL", defaultCatalogURL), "/")
}

// DownloadURL is the OData root serving product archives.
func DownloadURL() string {
	return strings.TrimRight(getenv("CDSE_DOWNLOAD_URL", defaultZipperURL), "/")
}

// Viewer overrides the command used to display a rendered map.
func Viewer() string {
	return os.Getenv("SCL_VIEWER")
}

// StrictSafeLayout disables the fallback to the extraction directory when an
// archive holds no .SAFE directory.
func StrictSafeLayout() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("SCL_STRICT_SAFE_LAYOUT"))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func LogLevel() string {
	return getenv("LOG_LEVEL", "warn")
}

func LogFormat() string {
	return getenv("LOG_FORMAT", "text")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
