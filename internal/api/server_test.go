package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"guildq/internal/api"
	"guildq/internal/config"
	"guildq/internal/domain"
	"guildq/internal/ingest"
	"guildq/internal/queue/memory"
	"guildq/internal/registry"
	storemem "guildq/internal/store/memory"
)

// fakePlayback clears the registry like the dispatcher and records calls.
type fakePlayback struct {
	reg *registry.Registry

	mu      sync.Mutex
	woken   []uint64
	cleared map[uint64]string
}

func (p *fakePlayback) Wake(guildID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.woken = append(p.woken, guildID)
}

func (p *fakePlayback) Clear(guildID uint64, reason string) {
	p.reg.Clear(guildID)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared[guildID] = reason
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *api.APIError   `json:"error"`
}

type queueData struct {
	GuildID string         `json:"guild_id"`
	Length  uint64         `json:"length"`
	Head    *registry.Item `json:"head"`
}

var _ = Describe("Server", func() {
	var (
		app      *fiber.App
		reg      *registry.Registry
		playback *fakePlayback
		msgQueue *memory.Queue
		bans     *storemem.BanRepository
	)

	do := func(method, path string, body interface{}) (int, envelope) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(data)
		}
		req := httptest.NewRequest(method, path, reader)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		var env envelope
		raw, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		if len(raw) > 0 && raw[0] == '{' {
			Expect(json.Unmarshal(raw, &env)).To(Succeed())
		}
		return resp.StatusCode, env
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		reg = registry.New()
		playback = &fakePlayback{reg: reg, cleared: make(map[uint64]string)}
		sessions := storemem.NewSessionStore()
		speakers := storemem.NewSpeakerRepository()
		bans = storemem.NewBanRepository()
		msgQueue = memory.NewQueue(100, logger)

		ingestService := ingest.NewService(msgQueue, sessions, speakers, bans, ingest.Options{
			DefaultSpeakerID: 1,
			SkipCommand:      "s",
			MaxTextLength:    domain.DefaultMaxTextLength,
		}, logger)

		server := api.NewServer(api.ServerDeps{
			Config:            &config.ServerConfig{},
			Logger:            logger,
			QueueHandler:      api.NewQueueHandler(reg, playback, logger),
			SessionHandler:    api.NewSessionHandler(sessions, playback, logger),
			SpeakerHandler:    api.NewSpeakerHandler(speakers, bans, 1, logger),
			SpeechHandler:     api.NewSpeechHandler(ingestService, logger),
			DictionaryHandler: api.NewDictionaryHandler(storemem.NewDictionaryRepository(), bans, logger),
			SpeedHandler:      api.NewSpeedHandler(storemem.NewVoiceSpeedRepository(), logger),
			BanHandler:        api.NewBanHandler(bans, logger),
		})
		app = server.App()
	})

	AfterEach(func() {
		_ = msgQueue.Close()
	})

	Describe("Health Check", func() {
		It("should return healthy status", func() {
			status, env := do(http.MethodGet, "/healthz", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(env.Success).To(BeTrue())
		})

		It("should expose prometheus metrics", func() {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			resp, err := app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("Guild queues", func() {
		It("should enqueue and dequeue in FIFO order", func() {
			status, env := do(http.MethodPost, "/v1/guilds/42/queue", map[string]interface{}{"text": "hello", "speaker_id": 3})
			Expect(status).To(Equal(http.StatusCreated))
			var q queueData
			Expect(json.Unmarshal(env.Data, &q)).To(Succeed())
			Expect(q.Length).To(Equal(uint64(1)))

			status, _ = do(http.MethodPost, "/v1/guilds/42/queue", map[string]interface{}{"text": "world", "speaker_id": 5})
			Expect(status).To(Equal(http.StatusCreated))
			Expect(reg.Len(42)).To(Equal(uint64(2)))
			Expect(playback.woken).To(Equal([]uint64{42, 42}))

			status, env = do(http.MethodGet, "/v1/guilds/42/queue", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(env.Data, &q)).To(Succeed())
			Expect(q.GuildID).To(Equal("42"))
			Expect(q.Length).To(Equal(uint64(2)))
			Expect(q.Head).To(Equal(&registry.Item{Text: "hello", SpeakerID: 3}))

			var item registry.Item
			status, env = do(http.MethodPost, "/v1/guilds/42/queue/next", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(env.Data, &item)).To(Succeed())
			Expect(item).To(Equal(registry.Item{Text: "hello", SpeakerID: 3}))

			status, env = do(http.MethodPost, "/v1/guilds/42/queue/next", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(json.Unmarshal(env.Data, &item)).To(Succeed())
			Expect(item).To(Equal(registry.Item{Text: "world", SpeakerID: 5}))

			status, env = do(http.MethodPost, "/v1/guilds/42/queue/next", nil)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(env.Error.Code).To(Equal(api.ErrCodeQueueEmpty))
		})

		It("should report an absent guild as empty", func() {
			status, env := do(http.MethodGet, "/v1/guilds/7/queue", nil)
			Expect(status).To(Equal(http.StatusOK))
			var q queueData
			Expect(json.Unmarshal(env.Data, &q)).To(Succeed())
			Expect(q.Length).To(BeZero())
			Expect(q.Head).To(BeNil())
		})

		It("should clear only the addressed guild", func() {
			reg.Enqueue(99, "a", 1)
			reg.Enqueue(99, "b", 1)
			reg.Enqueue(100, "c", 1)

			status, _ := do(http.MethodDelete, "/v1/guilds/99/queue", nil)
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(reg.Len(99)).To(BeZero())
			Expect(reg.Len(100)).To(Equal(uint64(1)))
			Expect(playback.cleared).To(HaveKeyWithValue(uint64(99), "api"))
		})

		It("should list guilds with queue lengths", func() {
			reg.Enqueue(3, "x", 0)
			reg.Enqueue(1, "y", 0)
			reg.Enqueue(1, "z", 0)

			status, env := do(http.MethodGet, "/v1/guilds", nil)
			Expect(status).To(Equal(http.StatusOK))
			var list []queueData
			Expect(json.Unmarshal(env.Data, &list)).To(Succeed())
			Expect(list).To(HaveLen(2))
			Expect(list[0].GuildID).To(Equal("1"))
			Expect(list[0].Length).To(Equal(uint64(2)))
			Expect(list[1].GuildID).To(Equal("3"))
		})

		It("should reject ids that are not unsigned integers", func() {
			for _, path := range []string{"/v1/guilds/abc/queue", "/v1/guilds/-1/queue", "/v1/guilds/18446744073709551616/queue"} {
				status, env := do(http.MethodGet, path, nil)
				Expect(status).To(Equal(http.StatusBadRequest), path)
				Expect(env.Error.Code).To(Equal(api.ErrCodeBadRequest))
			}
		})

		It("should accept the largest guild id", func() {
			status, _ := do(http.MethodPost, "/v1/guilds/18446744073709551615/queue", map[string]interface{}{"text": "max"})
			Expect(status).To(Equal(http.StatusCreated))
			Expect(reg.Len(18446744073709551615)).To(Equal(uint64(1)))
		})
	})

	Describe("Voice sessions", func() {
		It("should start, get, count and end a session", func() {
			status, _ := do(http.MethodGet, "/v1/guilds/5/session", nil)
			Expect(status).To(Equal(http.StatusNotFound))

			status, env := do(http.MethodPut, "/v1/guilds/5/session", map[string]string{
				"voice_channel_id": "50",
				"text_channel_id":  "51",
			})
			Expect(status).To(Equal(http.StatusCreated))
			var session domain.VoiceSession
			Expect(json.Unmarshal(env.Data, &session)).To(Succeed())
			Expect(session.ID).NotTo(BeEmpty())
			Expect(session.GuildID).To(Equal(uint64(5)))
			Expect(session.TextChannelID).To(Equal(uint64(51)))

			status, _ = do(http.MethodGet, "/v1/guilds/5/session", nil)
			Expect(status).To(Equal(http.StatusOK))

			status, env = do(http.MethodGet, "/v1/sessions/count", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(env.Data)).To(MatchJSON(`{"count":1}`))

			reg.Enqueue(5, "pending", 0)
			status, _ = do(http.MethodDelete, "/v1/guilds/5/session", nil)
			Expect(status).To(Equal(http.StatusNoContent))
			Expect(reg.Len(5)).To(BeZero())
			Expect(playback.cleared).To(HaveKeyWithValue(uint64(5), "session_end"))

			status, env = do(http.MethodDelete, "/v1/guilds/5/session", nil)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(env.Error.Code).To(Equal(api.ErrCodeNotFound))
		})

		It("should reject a session without a text channel", func() {
			status, env := do(http.MethodPut, "/v1/guilds/5/session", map[string]string{"voice_channel_id": "50"})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(env.Error.Code).To(Equal(api.ErrCodeValidationFailed))
		})
	})

	Describe("Speech ingestion", func() {
		speech := func(text, channel string) map[string]string {
			return map[string]string{
				"guild_id":   "5",
				"channel_id": channel,
				"user_id":    "77",
				"text":       text,
			}
		}

		It("should refuse speech for a guild without a session", func() {
			status, env := do(http.MethodPost, "/v1/speech", speech("hello", "51"))
			Expect(status).To(Equal(http.StatusConflict))
			Expect(env.Error.Code).To(Equal(api.ErrCodeConflict))
			Expect(msgQueue.Len()).To(BeZero())
		})

		Context("with an open session", func() {
			BeforeEach(func() {
				status, _ := do(http.MethodPut, "/v1/guilds/5/session", map[string]string{
					"voice_channel_id": "50",
					"text_channel_id":  "51",
				})
				Expect(status).To(Equal(http.StatusCreated))
			})

			It("should accept and publish speech", func() {
				status, env := do(http.MethodPost, "/v1/speech", speech("hello", "51"))
				Expect(status).To(Equal(http.StatusAccepted))

				var result ingest.Result
				Expect(json.Unmarshal(env.Data, &result)).To(Succeed())
				Expect(result.Outcome).To(Equal(ingest.OutcomeQueued))
				Expect(result.RequestID).NotTo(BeEmpty())
				Expect(result.SpeakerID).To(Equal(uint64(1)))
				Expect(msgQueue.Len()).To(Equal(1))
			})

			It("should ignore other text channels", func() {
				status, _ := do(http.MethodPost, "/v1/speech", speech("hello", "52"))
				Expect(status).To(Equal(http.StatusConflict))
				Expect(msgQueue.Len()).To(BeZero())
			})

			It("should publish the skip command behind earlier speech", func() {
				reg.Enqueue(5, "pending", 0)

				status, _ := do(http.MethodPost, "/v1/speech", speech("hello", "51"))
				Expect(status).To(Equal(http.StatusAccepted))

				status, env := do(http.MethodPost, "/v1/speech", speech("s", "51"))
				Expect(status).To(Equal(http.StatusAccepted))
				var result ingest.Result
				Expect(json.Unmarshal(env.Data, &result)).To(Succeed())
				Expect(result.Outcome).To(Equal(ingest.OutcomeSkipped))
				Expect(result.RequestID).NotTo(BeEmpty())

				// the queue is cleared when the processor reaches the skip
				Expect(reg.Len(5)).To(Equal(uint64(1)))
				Expect(msgQueue.Len()).To(Equal(2))
			})

			It("should refuse speech from a banned user", func() {
				status, _ := do(http.MethodPut, "/v1/bans/77", map[string]string{"reason": "spam"})
				Expect(status).To(Equal(http.StatusOK))

				status, env := do(http.MethodPost, "/v1/speech", speech("hello", "51"))
				Expect(status).To(Equal(http.StatusForbidden))
				Expect(env.Error.Code).To(Equal(api.ErrCodeForbidden))
				Expect(msgQueue.Len()).To(BeZero())
			})

			It("should reject empty text", func() {
				status, env := do(http.MethodPost, "/v1/speech", speech("   ", "51"))
				Expect(status).To(Equal(http.StatusBadRequest))
				Expect(env.Error.Code).To(Equal(api.ErrCodeValidationFailed))
			})
		})

		It("should reject a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/v1/speech", bytes.NewReader([]byte("{not json")))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Speaker settings", func() {
		It("should fall back to the default speaker", func() {
			status, env := do(http.MethodGet, "/v1/users/77/speaker", nil)
			Expect(status).To(Equal(http.StatusOK))
			var setting domain.SpeakerSetting
			Expect(json.Unmarshal(env.Data, &setting)).To(Succeed())
			Expect(setting.SpeakerID).To(Equal(uint64(1)))
			Expect(setting.Default).To(BeTrue())
		})

		It("should set, read and reset a speaker", func() {
			status, _ := do(http.MethodPut, "/v1/users/77/speaker", map[string]interface{}{"speaker_id": 3})
			Expect(status).To(Equal(http.StatusOK))

			status, env := do(http.MethodGet, "/v1/users/77/speaker", nil)
			Expect(status).To(Equal(http.StatusOK))
			var setting domain.SpeakerSetting
			Expect(json.Unmarshal(env.Data, &setting)).To(Succeed())
			Expect(setting.SpeakerID).To(Equal(uint64(3)))
			Expect(setting.Default).To(BeFalse())

			status, _ = do(http.MethodDelete, "/v1/users/77/speaker", nil)
			Expect(status).To(Equal(http.StatusNoContent))

			status, _ = do(http.MethodDelete, "/v1/users/77/speaker", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("should require speaker_id", func() {
			status, env := do(http.MethodPut, "/v1/users/77/speaker", map[string]interface{}{})
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(env.Error.Code).To(Equal(api.ErrCodeValidationFailed))
		})
	})

	Describe("Guild dictionary", func() {
		entry := func(word, reading string) map[string]string {
			return map[string]string{"word": word, "reading": reading, "author_id": "77"}
		}

		It("should add, list, replace and delete entries", func() {
			status, env := do(http.MethodGet, "/v1/guilds/5/dictionary", nil)
			Expect(status).To(Equal(http.StatusOK))
			Expect(string(env.Data)).To(MatchJSON(`[]`))

			status, _ = do(http.MethodPut, "/v1/guilds/5/dictionary", entry("guildq", "ぎるどきゅー"))
			Expect(status).To(Equal(http.StatusOK))
			status, _ = do(http.MethodPut, "/v1/guilds/5/dictionary", entry("api", "えーぴーあい"))
			Expect(status).To(Equal(http.StatusOK))
			status, _ = do(http.MethodPut, "/v1/guilds/5/dictionary", entry("api", "あぴ"))
			Expect(status).To(Equal(http.StatusOK))

			status, env = do(http.MethodGet, "/v1/guilds/5/dictionary", nil)
			Expect(status).To(Equal(http.StatusOK))
			var entries []domain.DictionaryEntry
			Expect(json.Unmarshal(env.Data, &entries)).To(Succeed())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Word).To(Equal("api"))
			Expect(entries[0].Reading).To(Equal("あぴ"))
			Expect(entries[0].AuthorID).To(Equal(uint64(77)))

			status, env = do(http.MethodGet, "/v1/guilds/5/dictionary/entry?word=guildq", nil)
			Expect(status).To(Equal(http.StatusOK))
			var got domain.DictionaryEntry
			Expect(json.Unmarshal(env.Data, &got)).To(Succeed())
			Expect(got.Reading).To(Equal("ぎるどきゅー"))

			status, _ = do(http.MethodDelete, "/v1/guilds/5/dictionary/entry?word=guildq", nil)
			Expect(status).To(Equal(http.StatusNoContent))
			status, env = do(http.MethodGet, "/v1/guilds/5/dictionary/entry?word=guildq", nil)
			Expect(status).To(Equal(http.StatusNotFound))
			Expect(env.Error.Code).To(Equal(api.ErrCodeNotFound))
		})

		It("should validate entries", func() {
			status, env := do(http.MethodPut, "/v1/guilds/5/dictionary", entry("", "x"))
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(env.Error.Code).To(Equal(api.ErrCodeValidationFailed))

			status, _ = do(http.MethodDelete, "/v1/guilds/5/dictionary/entry", nil)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("should refuse edits from banned users", func() {
			status, _ := do(http.MethodPut, "/v1/bans/77", nil)
			Expect(status).To(Equal(http.StatusOK))

			status, env := do(http.MethodPut, "/v1/guilds/5/dictionary", entry("w", "x"))
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(env.Error.Code).To(Equal(api.ErrCodeForbidden))
		})
	})

	Describe("Guild speed", func() {
		It("should report, set and reset the speed", func() {
			status, env := do(http.MethodGet, "/v1/guilds/5/speed", nil)
			Expect(status).To(Equal(http.StatusOK))
			var speed domain.VoiceSpeed
			Expect(json.Unmarshal(env.Data, &speed)).To(Succeed())
			Expect(speed.Speed).To(Equal(domain.DefaultVoiceSpeed))
			Expect(speed.Default).To(BeTrue())

			status, _ = do(http.MethodPut, "/v1/guilds/5/speed", map[string]interface{}{"speed": 1.5})
			Expect(status).To(Equal(http.StatusOK))

			status, env = do(http.MethodGet, "/v1/guilds/5/speed", nil)
			Expect(status).To(Equal(http.StatusOK))
			speed = domain.VoiceSpeed{}
			Expect(json.Unmarshal(env.Data, &speed)).To(Succeed())
			Expect(speed.Speed).To(Equal(1.5))
			Expect(speed.Default).To(BeFalse())

			status, _ = do(http.MethodDelete, "/v1/guilds/5/speed", nil)
			Expect(status).To(Equal(http.StatusNoContent))
			status, _ = do(http.MethodDelete, "/v1/guilds/5/speed", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("should reject speeds out of range", func() {
			for _, v := range []float64{0.9, 2.1} {
				status, env := do(http.MethodPut, "/v1/guilds/5/speed", map[string]interface{}{"speed": v})
				Expect(status).To(Equal(http.StatusBadRequest))
				Expect(env.Error.Code).To(Equal(api.ErrCodeValidationFailed))
			}
		})
	})

	Describe("Ban list", func() {
		It("should ban, list and unban users", func() {
			status, _ := do(http.MethodGet, "/v1/bans/77", nil)
			Expect(status).To(Equal(http.StatusNotFound))

			status, _ = do(http.MethodPut, "/v1/bans/78", nil)
			Expect(status).To(Equal(http.StatusOK))
			status, env := do(http.MethodPut, "/v1/bans/77", map[string]string{"reason": "spam"})
			Expect(status).To(Equal(http.StatusOK))
			var ban domain.Ban
			Expect(json.Unmarshal(env.Data, &ban)).To(Succeed())
			Expect(ban.UserID).To(Equal(uint64(77)))
			Expect(ban.Reason).To(Equal("spam"))

			status, env = do(http.MethodGet, "/v1/bans", nil)
			Expect(status).To(Equal(http.StatusOK))
			var list []domain.Ban
			Expect(json.Unmarshal(env.Data, &list)).To(Succeed())
			Expect(list).To(HaveLen(2))
			Expect(list[0].UserID).To(Equal(uint64(77)))

			status, _ = do(http.MethodDelete, "/v1/bans/77", nil)
			Expect(status).To(Equal(http.StatusNoContent))
			status, _ = do(http.MethodDelete, "/v1/bans/77", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		It("should refuse speaker changes from banned users", func() {
			status, _ := do(http.MethodPut, "/v1/bans/77", nil)
			Expect(status).To(Equal(http.StatusOK))

			status, env := do(http.MethodPut, "/v1/users/77/speaker", map[string]interface{}{"speaker_id": 3})
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(env.Error.Code).To(Equal(api.ErrCodeForbidden))
		})
	})
})
