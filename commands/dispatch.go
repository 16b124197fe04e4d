package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
)

var ErrRateLimited = errors.New("rate limited")

// CommandError wraps any failure of a command handler. It never leaves the router.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// UserError carries a message that is safe to show to the invoking user
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// Userf builds a UserError
func Userf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// UserMessage picks the text shown to the user for err
func UserMessage(err error) string {
	var ue *UserError
	var rl *RateLimitError
	switch {
	case errors.As(err, &ue):
		return ue.Message
	case errors.As(err, &rl):
		secs := int(rl.RetryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		return fmt.Sprintf("You're using this command too often. Try again in %d seconds.", secs)
	case errors.Is(err, context.DeadlineExceeded):
		return "That took too long. Please try again later."
	}
	return "Something went wrong while running this command."
}

// InteractionUser returns the invoking user for guild and DM interactions
func InteractionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// HandleInteraction dispatches slash commands
func (r *Router) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	sc, ok := r.Slash(name)
	if !ok {
		r.log.Warn().Str("command", name).Msg("Unknown slash command")
		return
	}

	userID := ""
	if u := InteractionUser(i); u != nil {
		userID = u.ID
	}
	err := r.invoke(name, userID, i.GuildID, func(ctx context.Context) error {
		return sc.Handler(ctx, s, i)
	})
	if err != nil {
		RespondError(s, i, err)
	}
}

// HandleMessage dispatches prefix commands
func (r *Router) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	args, ok := r.parse(m.Content)
	if !ok {
		return
	}
	cmd, ok := r.Command(args[0])
	if !ok || cmd.Handler == nil {
		return
	}

	err := r.invoke(cmd.Name, m.Author.ID, m.GuildID, func(ctx context.Context) error {
		return cmd.Handler(ctx, s, m, args)
	})
	if err != nil {
		if _, sendErr := s.ChannelMessageSendEmbed(m.ChannelID, utils.ErrorEmbed("Command failed", UserMessage(err))); sendErr != nil {
			r.log.Error().Err(sendErr).Str("command", cmd.Name).Msg("Failed to send error message")
		}
	}
}

// parse splits a prefixed message into lower-cased command name and arguments
func (r *Router) parse(content string) ([]string, bool) {
	if r.prefix == "" || !strings.HasPrefix(content, r.prefix) {
		return nil, false
	}
	args := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(args) == 0 {
		return nil, false
	}
	args[0] = strings.ToLower(args[0])
	return args, true
}

// invoke runs fn under the rate limiter, a timeout and panic recovery. Any failure
// comes back as a *CommandError.
func (r *Router) invoke(name, userID, guildID string, fn func(ctx context.Context) error) (err error) {
	r.mu.RLock()
	parent, usage := r.ctx, r.usage
	r.mu.RUnlock()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().
				Str("command", name).
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("Command panicked")
			err = &CommandError{Command: name, Err: fmt.Errorf("panic: %v", rec)}
		}

		r.metrics.Command(name, err)
		ev := r.log.Info()
		if err != nil {
			ev = r.log.Warn().Err(err)
		}
		ev.Str("command", name).Str("user", userID).Dur("took", time.Since(start)).Msg("Command handled")

		if usage != nil && !errors.Is(err, ErrRateLimited) {
			usage(parent, name, userID, guildID, err == nil)
		}
	}()

	if r.limiter != nil && !r.limiter.Allow(userID, name) {
		return &CommandError{Command: name, Err: &RateLimitError{RetryAfter: r.limiter.RetryAfter(userID, name)}}
	}

	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		return &CommandError{Command: name, Err: err}
	}
	return nil
}
