package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/prestonty/timelens-be/internal/bootstrap"
	"github.com/prestonty/timelens-be/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] could not load .env, using system environment: %v", err)
	}

	mode := flag.String("mode", "", "persona, story, ask or appearance")
	event := flag.String("event", "", "historical event (persona and appearance modes)")
	personaID := flag.Int64("persona", 0, "persona id (story and ask modes)")
	count := flag.Int("count", 1, "number of subevents to narrate (story mode)")
	input := flag.String("input", "", "question for the persona (ask mode)")
	character := flag.String("character", "", "character name (appearance mode)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	os.Exit(run(options{
		mode:      *mode,
		event:     *event,
		personaID: *personaID,
		count:     *count,
		input:     *input,
		character: *character,
		timeout:   *timeout,
	}))
}

type options struct {
	mode      string
	event     string
	personaID int64
	count     int
	input     string
	character string
	timeout   time.Duration
}

// run returns the process exit code so deferred cleanup always happens.
func run(opts options) int {
	switch opts.mode {
	case "persona", "story", "ask", "appearance":
	default:
		flag.Usage()
		log.Print("choose -mode=persona, story, ask or appearance")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load configuration: %v", err)
		return 1
	}

	svcs, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		log.Printf("failed to initialize services: %v", err)
		return 1
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			log.Printf("[WARN] close store: %v", err)
		}
	}()

	if svcs.Narrative == nil {
		log.Printf("text generation disabled, set credentials for LLM_PROVIDER=%s", cfg.AI.Provider)
		return 1
	}
	if cfg.Store.Driver == config.StoreMemory && opts.mode != "persona" {
		log.Println("[WARN] STORE_DRIVER=memory starts empty on every run; use sqlite to keep personas between runs")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	switch opts.mode {
	case "persona":
		p, err := svcs.Narrative.GeneratePersona(ctx, opts.event)
		if err != nil {
			return fail(err)
		}
		printJSON(p)
	case "story":
		for i := 0; i < opts.count; i++ {
			sub, err := svcs.Narrative.ContinueStory(ctx, opts.personaID)
			if err != nil {
				return fail(err)
			}
			printJSON(sub)
		}
	case "ask":
		answer, err := svcs.Narrative.Answer(ctx, opts.personaID, opts.input)
		if err != nil {
			return fail(err)
		}
		fmt.Println(answer)
	case "appearance":
		ids, err := svcs.Appearance.Select(ctx, opts.character, opts.event)
		if err != nil {
			return fail(err)
		}
		printJSON(ids)
	}
	return 0
}

func fail(err error) int {
	log.Printf("request failed: %v", err)
	return 1
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Printf("encode output: %v", err)
	}
}
