package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"shrinkurl/internal/config"
	"shrinkurl/internal/db"
	"shrinkurl/internal/preview"
	"shrinkurl/internal/shortcode"
	"shrinkurl/internal/stats"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog/log"
)

const (
	userCookieName   = "user_id"
	userCookieMaxAge = 60 * 60 * 24 * 360 * 10 // ten years
)

// crawlerPreviewWait bounds how long a crawler is held while its preview
// is still rendering.
var crawlerPreviewWait = 5 * time.Second

// GenerateRequest is the structure for the /generate endpoint request body.
type GenerateRequest struct {
	URL string `json:"url" form:"url" binding:"required,url"`
}

// GenerateResponse is the structure for the /generate endpoint response body.
type GenerateResponse struct {
	ShortCode string `json:"short_code"`
	ShortLink string `json:"short_link"`
	StatsLink string `json:"stats_link"`
	LongLink  string `json:"long_link"`
}

// LinkSummary is one entry of the /links response.
type LinkSummary struct {
	ShortCode string    `json:"short_code"`
	ShortLink string    `json:"short_link"`
	LongLink  string    `json:"long_link"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsResponse is the structure for the /:shortCode/stats response body.
type StatsResponse struct {
	ShortLink string             `json:"short_link"`
	LongLink  string             `json:"long_link"`
	TotalHits int                `json:"total_hits"`
	Monthly   []stats.MonthCount `json:"monthly"`
}

// GenerateShortCodeHandler allocates a short code for a long URL and stores it.
func GenerateShortCodeHandler(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if allowed := config.AppConfig.AllowedDomainList(); len(allowed) > 0 {
		parsedURL, err := url.Parse(req.URL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL format: " + err.Error()})
			return
		}
		hostname := parsedURL.Hostname()
		if !slices.Contains(allowed, hostname) {
			c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("Domain '%s' is not allowed for shortening.", hostname)})
			return
		}
	}

	gen, err := shortcode.Default()
	if err != nil {
		log.Error().Err(err).Msg("short code generator unavailable")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Short code generator is misconfigured"})
		return
	}

	link := &db.Link{
		OriginalURL: req.URL,
		CreatorIP:   c.ClientIP(),
		UserID:      ensureUserID(c),
	}
	if err := createLinkWithCode(gen, link); err != nil {
		if shortcode.IsExhausted(err) || errors.Is(err, errAllocationConflict) {
			log.Error().Err(err).Str("url", req.URL).Msg("cannot issue a new short code")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unable to issue new links"})
			return
		}
		log.Error().Err(err).Str("url", req.URL).Msg("failed to create link")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save link to database"})
		return
	}
	log.Info().Str("short_code", link.ShortCode).Str("url", link.OriginalURL).Msg("issued short code")

	if preview.DefaultQueue != nil {
		preview.DefaultQueue.Enqueue(link.ShortCode, link.OriginalURL)
	}

	shortLink := shortLinkFor(link.ShortCode)
	c.JSON(http.StatusCreated, GenerateResponse{
		ShortCode: link.ShortCode,
		ShortLink: shortLink,
		StatsLink: shortLink + "/stats",
		LongLink:  link.OriginalURL,
	})
}

// ListLinksHandler returns the links created by the requesting browser.
func ListLinksHandler(c *gin.Context) {
	summaries := []LinkSummary{}

	userID, err := c.Cookie(userCookieName)
	if err != nil || userID == "" {
		c.JSON(http.StatusOK, gin.H{"links": summaries})
		return
	}

	links, err := db.GetLinksByUser(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to list links")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	for _, link := range links {
		summaries = append(summaries, LinkSummary{
			ShortCode: link.ShortCode,
			ShortLink: shortLinkFor(link.ShortCode),
			LongLink:  link.OriginalURL,
			CreatedAt: link.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"links": summaries})
}

// RedirectHandler records a hit and redirects to the original URL. Crawlers
// are served the prerendered preview when one is available.
func RedirectHandler(c *gin.Context) {
	link, ok := lookupLink(c)
	if !ok {
		return
	}

	if err := db.CreateHit(&db.Hit{ShortCode: link.ShortCode, IPAddress: c.ClientIP()}); err != nil {
		log.Error().Err(err).Str("short_code", link.ShortCode).Msg("failed to record hit")
	}

	userAgent := c.GetHeader("User-Agent")
	crawler := isCrawler(userAgent)
	if crawler && preview.DefaultQueue != nil && preview.DefaultQueue.InProgress(link.ShortCode) {
		if preview.DefaultQueue.Wait(link.ShortCode, crawlerPreviewWait) {
			if fresh, err := db.GetLinkByShortCode(link.ShortCode); err == nil {
				link = fresh
			} else {
				log.Error().Err(err).Str("short_code", link.ShortCode).Msg("failed to reload link after preview")
			}
		}
	}
	if crawler && link.PreviewStatus == db.PreviewStatusCompleted && link.PreviewHTML != "" {
		log.Debug().Str("short_code", link.ShortCode).Str("user_agent", userAgent).Msg("serving preview to crawler")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(link.PreviewHTML))
		return
	}

	c.Redirect(http.StatusFound, link.OriginalURL)
}

// StatsHandler reports hit counts for a short code, grouped by month.
func StatsHandler(c *gin.Context) {
	link, ok := lookupLink(c)
	if !ok {
		return
	}

	hits, err := db.GetHits(link.ShortCode)
	if err != nil {
		log.Error().Err(err).Str("short_code", link.ShortCode).Msg("failed to load hits")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	times := make([]time.Time, 0, len(hits))
	for _, hit := range hits {
		times = append(times, hit.CreatedAt)
	}

	c.JSON(http.StatusOK, StatsResponse{
		ShortLink: shortLinkFor(link.ShortCode),
		LongLink:  link.OriginalURL,
		TotalHits: len(hits),
		Monthly:   stats.Monthly(times, time.UTC),
	})
}

// HealthCheckHandler provides a simple health check endpoint.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// StatusHandler reports generator capacity and preview queue state.
func StatusHandler(c *gin.Context) {
	gen, err := shortcode.Default()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "DOWN", "error": err.Error()})
		return
	}

	alpha := gen.Alphabet()
	issued, err := db.CountShortCodes(alpha.Length())
	if err != nil {
		log.Error().Err(err).Msg("failed to count issued codes")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "DOWN", "error": "Database error"})
		return
	}

	previews := gin.H{"enabled": false}
	if preview.DefaultQueue != nil {
		previews = gin.H{"enabled": true}
		for k, v := range preview.DefaultQueue.Status() {
			previews[k] = v
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"generator": gin.H{
			"driver":        gen.DriverName(),
			"code_length":   alpha.Length(),
			"alphabet_size": alpha.Size(),
			"code_space":    alpha.Space(),
			"issued":        issued,
		},
		"preview": previews,
	})
}

func lookupLink(c *gin.Context) (*db.Link, bool) {
	shortCode := c.Param("shortCode")
	if shortCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Short code parameter is missing"})
		return nil, false
	}

	link, err := db.GetLinkByShortCode(shortCode)
	if err != nil {
		if gorm.IsRecordNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Short code not found"})
		} else {
			log.Error().Err(err).Str("short_code", shortCode).Msg("failed to retrieve link")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return nil, false
	}
	return link, true
}

// ensureUserID returns the anonymous user id cookie, issuing one if missing.
func ensureUserID(c *gin.Context) string {
	if id, err := c.Cookie(userCookieName); err == nil && id != "" {
		return id
	}
	id := uuid.NewString()
	c.SetCookie(userCookieName, id, userCookieMaxAge, "/", "", false, true)
	return id
}

func shortLinkFor(shortCode string) string {
	return config.AppConfig.BaseURL + shortCode
}

var crawlerMarkers = []string{
	"bot", "crawler", "spider", "slurp", "facebookexternalhit", "embedly", "whatsapp",
}

// isCrawler is a basic user agent check for link unfurlers and search bots.
func isCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range crawlerMarkers {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}
