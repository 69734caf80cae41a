package user_agent

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// DeviceClass is the coarse device category of a visitor.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "Mobile"
	DeviceDesktop DeviceClass = "Desktop"
)

// BrowserFamily groups browsers into the families reported on the dashboard.
type BrowserFamily string

const (
	BrowserChrome  BrowserFamily = "Chrome"
	BrowserFirefox BrowserFamily = "Firefox"
	BrowserSafari  BrowserFamily = "Safari"
	BrowserEdge    BrowserFamily = "Edge"
	BrowserOther   BrowserFamily = "Other"
)

// OSFamily groups operating systems into the families reported on the dashboard.
type OSFamily string

const (
	OSWindows OSFamily = "Windows"
	OSMacOS   OSFamily = "macOS"
	OSLinux   OSFamily = "Linux"
	OSAndroid OSFamily = "Android"
	OSIOS     OSFamily = "iOS"
	OSOther   OSFamily = "Other"
)

type UserAgent struct {
	UserAgent string
	OS        OSFamily
	Browser   BrowserFamily
	Device    DeviceClass
	Bot       bool
	BotName   string
}

//go:embed database/rules.yml
var databaseFiles embed.FS

// Browser entry structure
type BrowserEntry struct {
	Regex  string `yaml:"regex"`
	Family string `yaml:"family"`
}

// OS entry structure
type OSEntry struct {
	Regex  string `yaml:"regex"`
	Family string `yaml:"family"`
}

// Bot entry structure
type BotEntry struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

// Mobile entry structure
type MobileEntry struct {
	Regex string `yaml:"regex"`
}

type rulesFile struct {
	Bots     []BotEntry     `yaml:"bots"`
	Browsers []BrowserEntry `yaml:"browsers"`
	OSs      []OSEntry      `yaml:"oss"`
	Mobile   []MobileEntry  `yaml:"mobile"`
}

// Compiled regex cache
type RegexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *RegexCache {
	return &RegexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *RegexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	// Double-check pattern
	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

// Global parser instance
var (
	parser *DeviceDetectorParser
	once   sync.Once
)

type DeviceDetectorParser struct {
	rules      rulesFile
	regexCache *RegexCache
}

func getParser() *DeviceDetectorParser {
	once.Do(func() {
		parser = &DeviceDetectorParser{
			regexCache: newRegexCache(),
		}

		data, err := databaseFiles.ReadFile("database/rules.yml")
		if err != nil {
			fmt.Printf("Error reading rules.yml: %v\n", err)
			return
		}
		if err := yaml.Unmarshal(data, &parser.rules); err != nil {
			fmt.Printf("Error parsing rules.yml: %v\n", err)
		}
	})
	return parser
}

func (p *DeviceDetectorParser) matches(pattern, userAgent string) bool {
	regex, err := p.regexCache.get(pattern)
	if err != nil {
		return false
	}
	return regex.MatchString(userAgent)
}

func (p *DeviceDetectorParser) parseBot(userAgent string) *BotEntry {
	for i := range p.rules.Bots {
		if p.matches(p.rules.Bots[i].Regex, userAgent) {
			return &p.rules.Bots[i]
		}
	}
	return nil
}

func (p *DeviceDetectorParser) parseBrowser(userAgent string) BrowserFamily {
	for _, entry := range p.rules.Browsers {
		if p.matches(entry.Regex, userAgent) {
			return normalizeBrowser(entry.Family)
		}
	}
	return BrowserOther
}

func (p *DeviceDetectorParser) parseOS(userAgent string) OSFamily {
	for _, entry := range p.rules.OSs {
		if p.matches(entry.Regex, userAgent) {
			return normalizeOS(entry.Family)
		}
	}
	return OSOther
}

func (p *DeviceDetectorParser) parseDevice(userAgent string) DeviceClass {
	for _, entry := range p.rules.Mobile {
		if p.matches(entry.Regex, userAgent) {
			return DeviceMobile
		}
	}
	return DeviceDesktop
}

func normalizeBrowser(family string) BrowserFamily {
	switch BrowserFamily(family) {
	case BrowserChrome, BrowserFirefox, BrowserSafari, BrowserEdge:
		return BrowserFamily(family)
	default:
		return BrowserOther
	}
}

func normalizeOS(family string) OSFamily {
	switch OSFamily(family) {
	case OSWindows, OSMacOS, OSLinux, OSAndroid, OSIOS:
		return OSFamily(family)
	default:
		return OSOther
	}
}

// ParseUserAgent classifies a raw User-Agent header into device, browser and OS families.
// Empty headers classify as a desktop with unknown browser and OS.
func ParseUserAgent(userAgent string) UserAgent {
	p := getParser()

	if strings.TrimSpace(userAgent) == "" {
		return UserAgent{
			UserAgent: userAgent,
			OS:        OSOther,
			Browser:   BrowserOther,
			Device:    DeviceDesktop,
		}
	}

	if bot := p.parseBot(userAgent); bot != nil {
		return UserAgent{
			UserAgent: userAgent,
			OS:        OSOther,
			Browser:   BrowserOther,
			Device:    DeviceDesktop,
			Bot:       true,
			BotName:   bot.Name,
		}
	}

	return UserAgent{
		UserAgent: userAgent,
		OS:        p.parseOS(userAgent),
		Browser:   p.parseBrowser(userAgent),
		Device:    p.parseDevice(userAgent),
	}
}
