package ai

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const researchPrompt = `You are a research assistant writing a comprehensive essay that answers the user's question.
Think about the scope of the question first and briefly say what you are going to cover.
Then write the essay in Markdown: an introduction, a body organised under headings, and a conclusion.
Write in full paragraphs rather than bullet lists. Mark anything you are unsure about.
Output your essay within <essay> tags. After the essay, list any sources you relied on within <sources> tags.`

// LLMSource streams an essay from a chat model through an eino chain.
type LLMSource struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger zerolog.Logger
}

// NewLLMSource compiles the prompt + model chain once.
func NewLLMSource(ctx context.Context, chatModel model.ChatModel, logger zerolog.Logger) (*LLMSource, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "compile research chain")
	}

	return &LLMSource{chain: runnable, logger: logger}, nil
}

func (s *LLMSource) Stream(ctx context.Context, question string, emit Emit) error {
	if err := emit("\n\n📝 Generating comprehensive essay...\n\n"); err != nil {
		return err
	}

	stream, err := s.chain.Stream(ctx, map[string]any{
		"system": researchPrompt,
		"query":  question,
	})
	if err != nil {
		return pkgerrors.Wrap(err, "start model stream")
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return pkgerrors.Wrap(recvErr, "model stream")
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if err := emit(chunk.Content); err != nil {
			return err
		}
	}

	s.logger.Info().Int("length", full.Len()).Msg("research: model stream complete")

	if essay := essayOf(full.String()); essay != "" {
		return emit(FinalReport(essay))
	}
	return nil
}
