package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var demoWords = []string{
	"Pretend", "this", "is", "an", "AI", "streaming", "tokens...", "✨", "all", "very", "impressive.",
}

// DemoTokens streams the fixed demo sentence one word at a time.
func DemoTokens(ctx context.Context, delay time.Duration, emit Emit) error {
	for _, w := range demoWords {
		if err := emit(w + " "); err != nil {
			return err
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return nil
}

// DemoSource walks through a canned research run so the client can be
// exercised without model credentials.
type DemoSource struct {
	Delay     time.Duration
	ChunkSize int
}

func NewDemoSource(delay time.Duration) *DemoSource {
	return &DemoSource{Delay: delay, ChunkSize: 20}
}

func (d *DemoSource) Stream(ctx context.Context, question string, emit Emit) error {
	tasks := []string{
		"Collect background on " + question,
		"Compare the main positions",
	}

	steps := []string{
		fmt.Sprintf("\n\n🔍 Starting research on: %s\n\n", question),
		"\n\n📋 Creating research plan...\n",
		"\n\n💭 Strategy:\n --> Break the question into focused tasks and summarise the findings\n\n",
	}
	for i, task := range tasks {
		steps = append(steps,
			fmt.Sprintf("\n\n🚀 Task %d/%d: %s\n", i+1, len(tasks), task),
			fmt.Sprintf("\n\n✅ Task %d complete: 0 sources found.\n", i+1),
		)
	}
	steps = append(steps, "\n\n📝 Generating comprehensive essay...\n\n")

	for _, step := range steps {
		if err := emit(step); err != nil {
			return err
		}
		if err := sleep(ctx, d.Delay); err != nil {
			return err
		}
	}

	essay := demoEssay(question)
	for _, part := range chunks(essayOpen+"\n"+essay+"\n"+essayClose, d.ChunkSize) {
		if err := emit(part); err != nil {
			return err
		}
		if err := sleep(ctx, d.Delay/10); err != nil {
			return err
		}
	}

	return emit(FinalReport(essay))
}

func demoEssay(question string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(question)
	b.WriteString("\n\nThis is a demonstration report. No search was performed, ")
	b.WriteString("so the findings below are placeholders.\n\n")
	b.WriteString("## Findings\n\nThe question was split into two tasks and each task was answered in turn.\n\n")
	b.WriteString("```text\nsources: none\n```\n")
	return b.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
