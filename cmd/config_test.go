package cmd

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/taskdesk/internal"
)

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("loadConfig", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	writeConfig := func(content string) {
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o600)).To(Succeed())
	}

	It("falls back to defaults without a config file", func() {
		// When
		cfg, err := loadConfig(dir)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.BaseURL).To(Equal(internal.DefaultBaseURL))
		Expect(cfg.API.Timeout).To(Equal(internal.DefaultTimeout))
		Expect(cfg.Push.Origin).To(Equal(internal.DefaultOrigin))
		Expect(cfg.Notifications.Enabled).To(BeTrue())
		Expect(cfg.Notifications.QueueSize).To(Equal(internal.DefaultQueueSize))
		Expect(cfg.PushURL()).To(Equal("ws://localhost:5000/socket"))
	})

	It("reads config.yml from the given directory", func() {
		// Given
		writeConfig(`
api:
  base_url: https://tasks.example.com
  timeout: 3s
notifications:
  enabled: false
logging:
  level: debug
  format: json
`)

		// When
		cfg, err := loadConfig(dir)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.BaseURL).To(Equal("https://tasks.example.com"))
		Expect(cfg.API.Timeout).To(Equal(3 * time.Second))
		Expect(cfg.Notifications.Enabled).To(BeFalse())
		Expect(cfg.Logging.Level).To(Equal("debug"))
		Expect(cfg.PushURL()).To(Equal("wss://tasks.example.com/socket"))
	})

	It("lets the environment override the file", func() {
		// Given
		writeConfig("api:\n  base_url: http://from-file:5000\n")
		setenv("TASKDESK_API_BASE_URL", "http://from-env:5000")
		setenv("TASKDESK_SESSION_TOKEN", "abc")

		// When
		cfg, err := loadConfig(dir)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.BaseURL).To(Equal("http://from-env:5000"))
		Expect(cfg.Session.Token).To(Equal("abc"))
	})

	It("rejects invalid settings", func() {
		// Given
		writeConfig("logging:\n  level: loud\n")

		// When
		_, err := loadConfig(dir)

		// Then
		Expect(err).To(MatchError(ContainSubstring("logging config")))
	})

	It("reports a malformed config file", func() {
		// Given
		writeConfig("api: [unclosed\n")

		// When
		_, err := loadConfig(dir)

		// Then
		Expect(err).To(MatchError(ContainSubstring("error reading config")))
	})

	It("configures from the environment alone in production", func() {
		// Given
		writeConfig("api:\n  base_url: http://from-file:5000\n")
		setenv("APP_ENV", "production")
		setenv("TASKDESK_API_BASE_URL", "https://prod.example.com")

		// When
		cfg, err := loadConfig(dir)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.BaseURL).To(Equal("https://prod.example.com"))
	})
})
