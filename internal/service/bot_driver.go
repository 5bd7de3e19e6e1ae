package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/model"
	"github.com/freeeve/tribes/internal/repository"
)

// BotDriver plays bot seats. It reacts to Kick calls after every applied
// action and runs a polling fallback that catches games whose kick was lost,
// for example after a restart.
type BotDriver struct {
	gameRepo repository.GameRepository
	turnSvc  *TurnService
	interval time.Duration
	kicks    chan string
}

// NewBotDriver creates a BotDriver.
func NewBotDriver(gameRepo repository.GameRepository, turnSvc *TurnService, interval time.Duration) *BotDriver {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &BotDriver{gameRepo: gameRepo, turnSvc: turnSvc, interval: interval, kicks: make(chan string, 256)}
}

// Kick asks the driver to look at gameID. Never blocks; a dropped kick is
// picked up by the poller.
func (d *BotDriver) Kick(gameID string) {
	select {
	case d.kicks <- gameID:
	default:
	}
}

// Start processes kicks and polls until ctx is done.
func (d *BotDriver) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", d.interval).Msg("Bot driver started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Bot driver stopped")
			return
		case gameID := <-d.kicks:
			d.play(ctx, gameID)
		case <-ticker.C:
			d.pollActiveGames(ctx)
		}
	}
}

// pollActiveGames plays any in-progress game waiting on a bot seat.
func (d *BotDriver) pollActiveGames(ctx context.Context) {
	games, err := d.gameRepo.List(ctx, model.GameInProgress, 1000)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list active games")
		return
	}
	for _, g := range games {
		d.play(ctx, g.ID)
	}
}

func (d *BotDriver) play(ctx context.Context, gameID string) {
	n, err := d.turnSvc.PlayBotTurns(ctx, gameID)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Msg("Bot turns failed")
		return
	}
	if n > 0 {
		log.Debug().Str("gameId", gameID).Int("actions", n).Msg("Bot turns played")
	}
}
