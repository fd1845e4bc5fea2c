package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Guild and user ids high enough not to collide with real data.
const (
	testGuildID     = "900000000000000001"
	otherGuildID    = "900000000000000002"
	testUserID      = "900000000000000010"
	testVoiceChanID = "900000000000000020"
	testTextChanID  = "900000000000000021"
)

// getBaseURL returns the base URL for API calls.
// Uses GUILDQ_BASE_URL env var if set (for container tests),
// otherwise defaults to localhost:8080.
func getBaseURL() string {
	if url := os.Getenv("GUILDQ_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// httpClient creates an HTTP client with sensible defaults.
func httpClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

// doRequest performs an HTTP request and returns the response.
func doRequest(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	url := getBaseURL() + path
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return httpClient().Do(req)
}

// parseResponse parses JSON response into target.
func parseResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// queueLength reads the guild's queue length.
func queueLength(guildID string) float64 {
	resp, err := doRequest("GET", "/v1/guilds/"+guildID+"/queue", nil)
	Expect(err).NotTo(HaveOccurred())

	var result map[string]interface{}
	Expect(parseResponse(resp, &result)).To(Succeed())
	data := result["data"].(map[string]interface{})
	return data["length"].(float64)
}

// cleanupTestData ends test sessions and resets test settings.
func cleanupTestData() {
	for _, g := range []string{testGuildID, otherGuildID} {
		_, _ = doRequest("DELETE", "/v1/guilds/"+g+"/session", nil)
		_, _ = doRequest("DELETE", "/v1/guilds/"+g+"/queue", nil)
		_, _ = doRequest("DELETE", "/v1/guilds/"+g+"/speed", nil)
		_, _ = doRequest("DELETE", "/v1/guilds/"+g+"/dictionary/entry?word=guildq", nil)
	}
	_, _ = doRequest("DELETE", "/v1/users/"+testUserID+"/speaker", nil)
	_, _ = doRequest("DELETE", "/v1/bans/"+testUserID, nil)
}

var _ = Describe("HTTP Integration Tests", Ordered, func() {
	BeforeAll(func() {
		// Check if the server is reachable
		resp, err := doRequest("GET", "/healthz", nil)
		if err != nil {
			Skip(fmt.Sprintf("Server not reachable at %s: %v", getBaseURL(), err))
		}
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		cleanupTestData()
	})

	AfterAll(func() {
		cleanupTestData()
	})

	Describe("Health Check", func() {
		It("should return healthy status", func() {
			resp, err := doRequest("GET", "/healthz", nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("Speaker Settings API", func() {
		It("should report the default speaker for a new user", func() {
			resp, err := doRequest("GET", "/v1/users/"+testUserID+"/speaker", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			data := result["data"].(map[string]interface{})
			Expect(data["default"]).To(BeTrue())
		})

		It("should store a speaker", func() {
			resp, err := doRequest("PUT", "/v1/users/"+testUserID+"/speaker", map[string]interface{}{"speaker_id": 14})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("should return the stored speaker", func() {
			resp, err := doRequest("GET", "/v1/users/"+testUserID+"/speaker", nil)
			Expect(err).NotTo(HaveOccurred())

			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			data := result["data"].(map[string]interface{})
			Expect(data["speaker_id"]).To(BeNumerically("==", 14))
			Expect(data["default"]).To(BeFalse())
		})
	})

	Describe("Voice Sessions and Speech", func() {
		It("should refuse speech before a session exists", func() {
			resp, err := doRequest("POST", "/v1/speech", map[string]string{
				"guild_id":   testGuildID,
				"channel_id": testTextChanID,
				"user_id":    testUserID,
				"text":       "too early",
			})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should start a session", func() {
			resp, err := doRequest("PUT", "/v1/guilds/"+testGuildID+"/session", map[string]string{
				"voice_channel_id": testVoiceChanID,
				"text_channel_id":  testTextChanID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			data := result["data"].(map[string]interface{})
			Expect(data["guild_id"]).To(Equal(testGuildID))
			Expect(data["id"]).NotTo(BeEmpty())
		})

		It("should accept speech and play it back", func() {
			for _, text := range []string{"hello", "world"} {
				resp, err := doRequest("POST", "/v1/speech", map[string]string{
					"guild_id":   testGuildID,
					"channel_id": testTextChanID,
					"user_id":    testUserID,
					"text":       text,
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

				var result map[string]interface{}
				Expect(parseResponse(resp, &result)).To(Succeed())
				data := result["data"].(map[string]interface{})
				Expect(data["outcome"]).To(Equal("queued"))
				Expect(data["speaker_id"]).To(BeNumerically("==", 14))
			}

			// The playback worker drains the queue
			Eventually(func() float64 {
				return queueLength(testGuildID)
			}, 10*time.Second, 100*time.Millisecond).Should(BeZero())
		})

		It("should accept the skip command and drain the queue", func() {
			resp, err := doRequest("POST", "/v1/speech", map[string]string{
				"guild_id":   testGuildID,
				"channel_id": testTextChanID,
				"user_id":    testUserID,
				"text":       "s",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			data := result["data"].(map[string]interface{})
			Expect(data["outcome"]).To(Equal("skipped"))

			Eventually(func() float64 {
				return queueLength(testGuildID)
			}, 10*time.Second, 100*time.Millisecond).Should(BeZero())
		})

		It("should refuse speech from a banned user", func() {
			resp, err := doRequest("PUT", "/v1/bans/"+testUserID, map[string]string{"reason": "integration"})
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = doRequest("POST", "/v1/speech", map[string]string{
				"guild_id":   testGuildID,
				"channel_id": testTextChanID,
				"user_id":    testUserID,
				"text":       "banned",
			})
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusForbidden))

			resp, err = doRequest("DELETE", "/v1/bans/"+testUserID, nil)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})

		It("should count the session", func() {
			resp, err := doRequest("GET", "/v1/sessions/count", nil)
			Expect(err).NotTo(HaveOccurred())

			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			data := result["data"].(map[string]interface{})
			Expect(data["count"]).To(BeNumerically(">=", 1))
		})

		It("should end the session", func() {
			resp, err := doRequest("DELETE", "/v1/guilds/"+testGuildID+"/session", nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp2, err := doRequest("GET", "/v1/guilds/"+testGuildID+"/session", nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp2.Body.Close()
			Expect(resp2.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	Describe("Guild Queue API", func() {
		It("should drain directly enqueued items", func() {
			resp, err := doRequest("POST", "/v1/guilds/"+otherGuildID+"/queue", map[string]interface{}{
				"text":       "direct",
				"speaker_id": 2,
			})
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			Eventually(func() float64 {
				return queueLength(otherGuildID)
			}, 10*time.Second, 100*time.Millisecond).Should(BeZero())
		})

		It("should report an empty queue on next", func() {
			resp, err := doRequest("POST", "/v1/guilds/"+otherGuildID+"/queue/next", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			apiErr := result["error"].(map[string]interface{})
			Expect(apiErr["code"]).To(Equal("QUEUE_EMPTY"))
		})

		It("should reject a non-numeric guild id", func() {
			resp, err := doRequest("GET", "/v1/guilds/not-a-guild/queue", nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Guild Settings API", func() {
		It("should store and list a dictionary entry", func() {
			resp, err := doRequest("PUT", "/v1/guilds/"+testGuildID+"/dictionary", map[string]string{
				"word":      "guildq",
				"reading":   "ぎるどきゅー",
				"author_id": testUserID,
			})
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = doRequest("GET", "/v1/guilds/"+testGuildID+"/dictionary", nil)
			Expect(err).NotTo(HaveOccurred())
			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			entries := result["data"].([]interface{})
			Expect(entries).NotTo(BeEmpty())
		})

		It("should store a guild speed and reject out of range values", func() {
			resp, err := doRequest("PUT", "/v1/guilds/"+testGuildID+"/speed", map[string]interface{}{"speed": 1.25})
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = doRequest("GET", "/v1/guilds/"+testGuildID+"/speed", nil)
			Expect(err).NotTo(HaveOccurred())
			var result map[string]interface{}
			Expect(parseResponse(resp, &result)).To(Succeed())
			data := result["data"].(map[string]interface{})
			Expect(data["speed"]).To(BeNumerically("==", 1.25))

			resp, err = doRequest("PUT", "/v1/guilds/"+testGuildID+"/speed", map[string]interface{}{"speed": 3})
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Metrics", func() {
		It("should expose playback counters", func() {
			resp, err := doRequest("GET", "/metrics", nil)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Contains(string(body), "guildq_items_spoken_total")).To(BeTrue())
		})
	})
})
