package mailbridge_test

import (
	"context"
	"fmt"
	"log"

	mailbridge "github.com/mhenke/mailjet-bridge/sdk"
)

func Example_basicUsage() {
	ctx := context.Background()

	client := mailbridge.New("https://bridge.internal")

	// --- Queue a batch send with per-recipient personalization ---
	job, err := client.SendMessage(ctx, mailbridge.SendRequest{
		Message: mailbridge.Message{
			Subject:  "Hello {firstname}",
			TextPart: "Hi {firstname}, thanks for signing up.",
			Metadata: map[string]mailbridge.Recipient{
				"alice@example.com": {
					Name:       "Alice",
					HashID:     "64f0a8b3",
					ContactID:  42,
					CampaignID: 7,
					Tokens:     map[string]string{"{firstname}": "Alice"},
				},
			},
		},
		Envelope: mailbridge.Envelope{
			Sender: mailbridge.Address{Email: "news@example.com", Name: "Example News"},
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("queued job:", job.JobID)

	// --- Poll the job ---
	status, err := client.Job(ctx, job.JobID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("job status:", status.Status)

	// --- Inspect suppressions recorded for an address ---
	list, err := client.Suppressions(ctx, "alice@example.com")
	if err != nil {
		log.Fatal(err)
	}
	for _, s := range list.Suppressions {
		fmt.Println(s.Channel, s.Reason, s.Comments)
	}
}
