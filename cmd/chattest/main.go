// Command chattest is a load generator for the realtime message bus. It
// creates matched pairs of users and has every user message its partner
// at a fixed interval over the WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"ember/internal/client"
	"ember/internal/models"
)

// Metrics tracks the test results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	MessagesSent         int64
	MessagesReceived     int64
	Errors               int64
	latencyTotalMicros   int64
}

var metrics Metrics

func main() {
	baseURL := flag.String("url", "http://localhost:8375", "API base URL")
	pairs := flag.Int("pairs", 25, "Number of matched pairs")
	interval := flag.Duration("interval", 5*time.Second, "Delay between messages of one user")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	flag.Parse()

	log.Printf("Starting chat load test")
	log.Printf("Target: %s", *baseURL)
	log.Printf("Pairs: %d (%d connections)", *pairs, 2*(*pairs))
	log.Printf("Duration: %v", *duration)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	run := strconv.FormatInt(time.Now().Unix(), 36)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < *pairs; i++ {
		a, b, err := matchedPair(ctx, *baseURL, run, i)
		if err != nil {
			log.Fatalf("Pair %d setup failed: %v", i, err)
		}
		wg.Add(2)
		go runClient(ctx, a, b.UserID, *interval, stop, &wg)
		go runClient(ctx, b, a.UserID, *interval, stop, &wg)
		// stagger connections so ticket issuance is not a burst
		time.Sleep(50 * time.Millisecond)
	}
	log.Printf("%d pairs matched and connecting", *pairs)

	select {
	case <-time.After(*duration):
		log.Println("Test duration reached")
	case <-ctx.Done():
		log.Println("Interrupted by user")
	}

	close(stop)
	log.Println("Waiting for clients to disconnect...")
	wg.Wait()

	printMetrics()
}

// matchedPair signs up two users with complementary profiles and has them
// like each other.
func matchedPair(ctx context.Context, baseURL, run string, i int) (*client.Client, *client.Client, error) {
	a := client.New(baseURL)
	b := client.New(baseURL)
	users := []struct {
		c         *client.Client
		handle    string
		gender    models.Gender
		interests models.Interest
	}{
		{a, fmt.Sprintf("chattest-%s-%d-a", run, i), models.GenderMale, models.InterestWomen},
		{b, fmt.Sprintf("chattest-%s-%d-b", run, i), models.GenderFemale, models.InterestMen},
	}
	for _, u := range users {
		if _, err := u.c.Authenticate(ctx, u.handle+"@loadtest.ember.dev", u.handle, ""); err != nil {
			return nil, nil, fmt.Errorf("authenticate %s: %w", u.handle, err)
		}
		_, err := u.c.UpdateProfile(ctx, client.Profile{
			Bio:         "load test account",
			Gender:      u.gender,
			Interests:   u.interests,
			MainPicture: "https://picsum.photos/seed/" + u.handle + "/800/1000",
			Age:         30,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("profile %s: %w", u.handle, err)
		}
	}
	if _, err := a.Swipe(ctx, b.UserID, true); err != nil {
		return nil, nil, err
	}
	isMatch, err := b.Swipe(ctx, a.UserID, true)
	if err != nil {
		return nil, nil, err
	}
	if !isMatch {
		return nil, nil, fmt.Errorf("users %d and %d did not match", a.UserID, b.UserID)
	}
	return a, b, nil
}

func runClient(ctx context.Context, c *client.Client, partner uint, interval time.Duration, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	conn, err := c.Connect(ctx)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	defer func() { _ = conn.Close() }()
	if err := conn.Identify(c.UserID); err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	go func() {
		for ev := range conn.Events() {
			switch ev.Type {
			case "message":
				if ev.SenderID != partner {
					continue
				}
				atomic.AddInt64(&metrics.MessagesReceived, 1)
				if sent, ok := sentAt(ev.Content); ok {
					atomic.AddInt64(&metrics.latencyTotalMicros, time.Since(sent).Microseconds())
				}
			case "error":
				atomic.AddInt64(&metrics.Errors, 1)
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			content := fmt.Sprintf("chattest %d", time.Now().UnixNano())
			if err := conn.SendMessage(c.UserID, partner, content); err != nil {
				atomic.AddInt64(&metrics.Errors, 1)
				return
			}
			atomic.AddInt64(&metrics.MessagesSent, 1)
		}
	}
}

func sentAt(content string) (time.Time, bool) {
	raw, ok := strings.CutPrefix(content, "chattest ")
	if !ok {
		return time.Time{}, false
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, ns), true
}

func printMetrics() {
	log.Println("Test Results")
	log.Println("============")
	log.Printf("Connections Attempted: %d", atomic.LoadInt64(&metrics.ConnectionsAttempted))
	log.Printf("Connections Successful: %d", atomic.LoadInt64(&metrics.ConnectionsSuccess))
	log.Printf("Connections Failed: %d", atomic.LoadInt64(&metrics.ConnectionsFailed))
	log.Printf("Messages Sent: %d", atomic.LoadInt64(&metrics.MessagesSent))
	received := atomic.LoadInt64(&metrics.MessagesReceived)
	log.Printf("Messages Received: %d", received)
	if received > 0 {
		avg := time.Duration(atomic.LoadInt64(&metrics.latencyTotalMicros)/received) * time.Microsecond
		log.Printf("Average Delivery Latency: %v", avg)
	}
	log.Printf("Total Errors: %d", atomic.LoadInt64(&metrics.Errors))
}
