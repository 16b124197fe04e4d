package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"KasutamaizaBot/commands"
	"KasutamaizaBot/loader"
	"KasutamaizaBot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

func init() {
	loader.Register(loader.Cogs, &Profiles{})
}

var validate = validator.New()

// bioUpdate is the input of /profile_bio
type bioUpdate struct {
	Bio          string `validate:"required,max=300"`
	FavoriteCard string `validate:"max=100"`
}

func (u bioUpdate) check() error {
	err := validate.Struct(u)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "Bio":
			if fe.Tag() == "required" {
				return commands.Userf("Your bio can't be empty.")
			}
			return commands.Userf("Your bio can be at most %s characters.", fe.Param())
		case "FavoriteCard":
			return commands.Userf("The favorite card name can be at most %s characters.", fe.Param())
		}
	}
	return err
}

// Profiles lets members view and edit their profile
type Profiles struct {
	store *Store
	log   zerolog.Logger
}

func (*Profiles) Name() string { return "profile" }

func (p *Profiles) Initialize(_ context.Context, mc *loader.Context) error {
	if mc.Pool == nil {
		return errors.New("profile requires a database pool")
	}
	if mc.Router == nil {
		return errors.New("profile requires a command router")
	}
	p.store = NewStore(mc.Pool)
	p.log = mc.Logger
	return mc.Router.RegisterModule(&commands.ModuleInfo{
		Name:        "Profile",
		Description: "Member profiles",
		Version:     "1.0.0",
		Author:      "ProfessorSeanEX",
		Category:    "Utility",
		SlashCommands: []commands.SlashCommandInfo{
			{
				Name:        "profile",
				Description: "View a member's profile",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Whose profile to show"},
				},
				Handler: p.show,
			},
			{
				Name:        "profile_bio",
				Description: "Set your profile bio",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Your bio", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "favorite_card", Description: "Your favorite card"},
				},
				Handler: p.setBio,
			},
		},
	})
}

func profileEmbed(user *discordgo.User, pr Profile) *discordgo.MessageEmbed {
	bio := pr.Bio
	if bio == "" {
		bio = "No bio set. Use `/profile_bio` to add one."
	}
	embed := utils.InfoEmbed(user.Username+"'s Profile", bio,
		utils.Field("Favorite Card", pr.FavoriteCard, true),
		utils.Field("Member Since", pr.MemberSince.Format("January 2, 2006"), true),
		utils.Field("Commands Used", strconv.FormatInt(pr.Commands, 10), true),
	)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("128")}
	return embed
}

func (p *Profiles) show(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	user := commands.InteractionUser(i)
	if o, ok := commands.OptionMap(i)["user"]; ok {
		user = o.UserValue(s)
	}
	if user == nil {
		return commands.Userf("Could not resolve that user.")
	}
	id, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("user id %q: %w", user.ID, err)
	}

	pr, err := p.store.Get(ctx, id)
	if errors.Is(err, ErrNoProfile) {
		return commands.RespondEmbed(s, i, utils.InfoEmbed(user.Username+"'s Profile", "This member hasn't set up a profile yet."))
	}
	if err != nil {
		return err
	}
	return commands.RespondEmbed(s, i, profileEmbed(user, pr))
}

func (p *Profiles) setBio(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
	user := commands.InteractionUser(i)
	if user == nil {
		return commands.Userf("Could not resolve your user.")
	}
	opts := commands.OptionMap(i)
	var update bioUpdate
	if o, ok := opts["text"]; ok {
		update.Bio = strings.TrimSpace(o.StringValue())
	}
	if o, ok := opts["favorite_card"]; ok {
		update.FavoriteCard = strings.TrimSpace(o.StringValue())
	}
	if err := update.check(); err != nil {
		return err
	}

	id, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("user id %q: %w", user.ID, err)
	}
	if err := p.store.SetBio(ctx, id, user.Username, update.Bio, update.FavoriteCard); err != nil {
		return err
	}
	p.log.Info().Str("user", user.ID).Msg("Profile bio updated")
	return commands.Respond(s, i, "Your profile has been updated.", true)
}
