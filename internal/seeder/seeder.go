package seeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"gorm.io/gorm"

	"folio/internal/content"
	"folio/internal/messages"
	"folio/internal/newsletter"
	"folio/internal/services"
	"folio/internal/users"
	"folio/internal/visits"
)

const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "password"
)

// Seeder fills a development database with plausible portfolio data.
type Seeder struct {
	DBManager  cartridge.DBManager
	Logger     *slog.Logger
	VisitCount int
	Days       int
	Now        func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, visitCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager:  dbManager,
		Logger:     logger,
		VisitCount: visitCount,
		Days:       30,
		Now:        time.Now,
	}
}

// Run seeds the admin user, site content, services, messages, subscribers and visits.
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Starting database seeding...", slog.Int("visitCount", s.VisitCount))

	if _, err := s.seedUser(); err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}
	if err := s.seedContent(); err != nil {
		return fmt.Errorf("failed to seed content: %w", err)
	}
	if err := s.seedServices(); err != nil {
		return fmt.Errorf("failed to seed services: %w", err)
	}
	if err := s.seedMessages(); err != nil {
		return fmt.Errorf("failed to seed messages: %w", err)
	}
	if err := s.seedSubscribers(); err != nil {
		return fmt.Errorf("failed to seed subscribers: %w", err)
	}
	if err := s.SeedVisits(ctx); err != nil {
		return fmt.Errorf("failed to seed visits: %w", err)
	}

	s.Logger.Info("Seeding completed successfully", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// seedUser ensures the default admin user exists
func (s *Seeder) seedUser() (*users.User, error) {
	db := s.DBManager.GetConnection()
	user, err := users.FindByEmail(db, DefaultAdminEmail)
	if err == nil {
		s.Logger.Info("Admin user already exists", slog.String("email", user.Email))
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}

	s.Logger.Info("Creating admin user")
	if err := users.CreateAdminUser(db, DefaultAdminEmail, DefaultAdminPassword); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	return users.FindByEmail(db, DefaultAdminEmail)
}

func (s *Seeder) seedContent() error {
	db := s.DBManager.GetConnection()
	blocks := map[string]content.Value{
		"hero.title":    content.Text("Hi, I design and build web products"),
		"hero.subtitle": content.Text("Independent developer focused on fast, accessible sites"),
		"about.body":    content.HTML("<p>I have shipped products for startups and agencies for over ten years.</p>"),
		"testimonials":  content.JSON(`[{"author":"Ana","quote":"Delivered ahead of schedule."},{"author":"Sam","quote":"Clear communication throughout."}]`),
	}
	for key, value := range blocks {
		if _, err := content.Put(db, s.Logger, key, value, s.Now()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedServices() error {
	db := s.DBManager.GetConnection()
	inputs := []services.Input{
		{Title: "Web development", Description: "Sites and web apps built to last.", Icon: "code", SortOrder: 1, Published: true},
		{Title: "UX design", Description: "Research-driven interface design.", Icon: "pen", SortOrder: 2, Published: true},
		{Title: "Technical consulting", Description: "Architecture reviews and audits.", Icon: "chat", SortOrder: 3, Published: true},
		{Title: "Workshops", Description: "Coming soon.", Icon: "users", SortOrder: 4},
	}
	for _, in := range inputs {
		_, err := services.Create(db, s.Logger, in)
		if errors.Is(err, services.ErrSlugTaken) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedMessages() error {
	db := s.DBManager.GetConnection()
	now := s.Now().UTC()
	samples := []messages.CreateInput{
		{Name: "Maria Lopez", Email: "maria@example.com", Subject: "Website redesign", Body: "We would like a quote for redesigning our company site."},
		{Name: "Tom Becker", Email: "tom@example.com", Phone: "+49 30 1234567", Subject: "Consulting call", Body: "Could we schedule a call about our frontend architecture?"},
		{Name: "Priya Nair", Email: "priya@example.com", Subject: "Workshop inquiry", Body: "Do you run in-house workshops for small teams?"},
	}
	for i, in := range samples {
		in.IPAddress = fmt.Sprintf("203.0.113.%d", i+10)
		in.UserAgent = getUserAgents()[0]
		if _, err := messages.Create(db, s.Logger, in, now.Add(-time.Duration(i+1)*26*time.Hour), nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedSubscribers() error {
	db := s.DBManager.GetConnection()
	for i := 0; i < 5; i++ {
		res, err := newsletter.Subscribe(db, s.Logger, fmt.Sprintf("reader%d@example.com", i), s.Now())
		if err != nil {
			return err
		}
		if i%2 == 0 && res.Token != "" {
			if _, err := newsletter.Confirm(db, s.Logger, res.Token, s.Now()); err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedVisits records VisitCount page views spread over the last Days days,
// following short browsing journeys so returning visitors appear.
func (s *Seeder) SeedVisits(ctx context.Context) error {
	db := s.DBManager.GetConnection()
	ipPool := generateIPPool(50)
	userAgents := getUserAgents()
	referrers := getReferrers()
	journeys := [][]string{
		{"/", "/about", "/contact"},
		{"/", "/work", "/work/case-study-1", "/contact"},
		{"/services", "/services/web-development", "/contact"},
		{"/blog", "/blog/building-fast-sites", "/"},
		{"/", "/services", "/work"},
		{"/about"},
	}

	now := s.Now().UTC()
	window := time.Duration(s.Days) * 24 * time.Hour
	created := 0

	for created < s.VisitCount {
		if err := ctx.Err(); err != nil {
			return err
		}

		ip := ipPool[rand.IntN(len(ipPool))]
		ua := userAgents[rand.IntN(len(userAgents))]
		session := fmt.Sprintf("seed-%s-%d", ip, rand.IntN(3))
		journey := journeys[rand.IntN(len(journeys))]
		at := now.Add(-time.Duration(rand.Int64N(int64(window))))
		referrer := referrers[rand.IntN(len(referrers))]

		for _, path := range journey {
			if created >= s.VisitCount {
				break
			}
			duration := rand.IntN(180) + 5
			if _, err := visits.RecordVisit(db, s.Logger, visits.RecordInput{
				IPAddress: ip,
				UserAgent: ua,
				Referrer:  referrer,
				Path:      path,
				SessionID: session,
				Duration:  &duration,
				Timestamp: at,
			}); err != nil {
				return err
			}
			created++
			referrer = ""
			at = at.Add(time.Duration(duration) * time.Second)
		}
	}

	s.Logger.Info("Seeded visits", slog.Int("count", created))
	return nil
}

func generateIPPool(count int) []string {
	ipPool := make(map[string]bool)
	var ips []string
	for len(ips) < count {
		ip := fmt.Sprintf("%d.%d.%d.%d", rand.IntN(223)+1, rand.IntN(256), rand.IntN(256), rand.IntN(254)+1)
		if !ipPool[ip] {
			ipPool[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

func getUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	}
}

func getReferrers() []string {
	return []string{
		"", // Direct visit
		"https://www.google.com/",
		"https://duckduckgo.com/",
		"https://www.linkedin.com/feed/",
		"https://github.com/someone",
		"https://dribbble.com/shots/123",
		"https://news.ycombinator.com/item?id=1",
	}
}
