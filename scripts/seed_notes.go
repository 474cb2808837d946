package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"notebot/internal/quota"
	"notebot/internal/session"
	"notebot/internal/store/backend"
)

var sampleNotes = []string{
	"Buy oat milk and coffee beans",
	"Call the dentist about Thursday",
	"Idea: weekly review every Friday afternoon",
	"Book train tickets for the conference",
	"Return the library books",
	"Ask Sam for the meeting slides",
	"Renew passport before summer",
	"Water the plants on the balcony",
	"Draft the quarterly budget email",
	"Pick up the parcel from the post office",
	"Check the car tyre pressure",
	"Try the new ramen place downtown",
}

func main() {
	driver := flag.String("driver", "json", "storage driver")
	conn := flag.String("conn", "notes_data.json", "data file or connection string")
	user := flag.String("user", "1", "user id to seed")
	count := flag.Int("n", 5, "notes to add")
	flag.Parse()

	st, err := backend.Open(*driver, *conn)
	if err != nil {
		log.Fatalf("Could not open store: %v", err)
	}
	defer st.Close()

	svc := session.NewService(st, quota.New(time.Now), nil)
	ctx := context.Background()

	inserted := 0
	for i := 0; i < *count; i++ {
		text := sampleNotes[rand.Intn(len(sampleNotes))]
		conf, err := svc.OnMessage(ctx, *user, text)
		if errors.Is(err, session.ErrQuotaExceeded) {
			fmt.Println("Quota reached, stopping")
			break
		}
		if err != nil {
			log.Fatalf("Error inserting note: %v", err)
		}
		inserted++
		fmt.Printf("Added %q (%d remaining)\n", text, conf.Remaining)
	}

	fmt.Printf("Inserted %d notes for user %s\n", inserted, *user)
}
