package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/apperr"
	"github.com/jimdaga/studymate/internal/chat"
	"github.com/jimdaga/studymate/internal/models"
)

var (
	chatEmail    string
	chatSubject  string
	chatLanguage string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from the terminal as an existing user",
	Long: `Open an interactive chat session for the given user. Earlier messages are
printed first; every exchange is stored in the user's chat history.
Type /quit to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatEmail, "email", "", "Email of the user to chat as (required)")
	chatCmd.Flags().StringVar(&chatSubject, "subject-id", "", "Limit the conversation to one subject")
	chatCmd.Flags().StringVar(&chatLanguage, "language", "en", "Response language code")
	chatCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(chatCmd)
}

type sender interface {
	Send(ctx context.Context, userID uuid.UUID, req chat.SendRequest) (*chat.Exchange, error)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var subjectID *uuid.UUID
	if chatSubject != "" {
		id, err := uuid.Parse(chatSubject)
		if err != nil {
			return fmt.Errorf("invalid --subject-id: %w", err)
		}
		subjectID = &id
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var user models.User
	err = a.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(chatEmail))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no user with email %s", chatEmail)
	}
	if err != nil {
		return err
	}

	deps, err := a.routerDeps(nil)
	if err != nil {
		return err
	}

	previous, err := deps.History.Fetch(ctx, user.ID, subjectID)
	if err != nil {
		return err
	}
	transcript := chat.NewTranscript(previous)

	return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), deps.Chat, transcript, user.ID, chat.SendRequest{
		Language:  chatLanguage,
		SubjectID: subjectID,
	})
}

// chatLoop prints the transcript, then sends each input line as a question
// until EOF or /quit.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, conv sender, transcript *chat.Transcript, userID uuid.UUID, base chat.SendRequest) error {
	for _, m := range transcript.Messages() {
		printMessage(out, m)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		req := base
		req.Message = line
		ex, err := conv.Send(ctx, userID, req)
		if err != nil {
			msg := err.Error()
			if appErr, ok := apperr.As(err); ok && appErr.Message != "" {
				msg = appErr.Message
			}
			fmt.Fprintf(out, "error: %s\n", msg)
			continue
		}

		transcript.Append(ex.Question, ex.Answer)
		printMessage(out, ex.Answer)
	}
}

func printMessage(out io.Writer, m models.ChatMessage) {
	who := "assistant"
	if m.IsUserMessage {
		who = "you"
	}
	fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), who, m.Message)
}
