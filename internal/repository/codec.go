package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// Hash fields of a room record.
const (
	fieldPasscode      = "passcode"
	fieldStatus        = "status"
	fieldPlayer1       = "players.player1.connected"
	fieldPlayer2       = "players.player2.connected"
	fieldGame          = "game"
	fieldPlayer1Wins   = "score.player1Wins"
	fieldPlayer2Wins   = "score.player2Wins"
	fieldDraws         = "score.draws"
	fieldTotalMatches  = "score.totalMatches"
	fieldCreatedAt     = "createdAt"
	fieldVersion       = "version"
	connectedFieldTrue = "1"
)

func roomKey(passcode string) string {
	return "room:" + passcode
}

func eventsChannel(passcode string) string {
	return "room:" + passcode + ":events"
}

func connectedField(role entity.Role) string {
	if role == entity.RolePlayer2 {
		return fieldPlayer2
	}

	return fieldPlayer1
}

func encodeBool(value bool) string {
	if value {
		return connectedFieldTrue
	}

	return "0"
}

func encodeSession(session *entity.Session) (map[string]any, error) {
	game, err := json.Marshal(session.Game)
	if err != nil {
		return nil, fmt.Errorf("could not marshal game: %w", err)
	}

	return map[string]any{
		fieldPasscode:     session.Passcode,
		fieldStatus:       string(session.Status),
		fieldPlayer1:      encodeBool(session.Players.Player1.Connected),
		fieldPlayer2:      encodeBool(session.Players.Player2.Connected),
		fieldGame:         string(game),
		fieldPlayer1Wins:  session.Score.Player1Wins,
		fieldPlayer2Wins:  session.Score.Player2Wins,
		fieldDraws:        session.Score.Draws,
		fieldTotalMatches: session.Score.TotalMatches,
		fieldCreatedAt:    session.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldVersion:      session.Version,
	}, nil
}

// encodePatch splits a patch into plain field sets and numeric increments.
func encodePatch(patch entity.Patch) (map[string]any, map[string]int64, error) {
	sets := make(map[string]any)
	increments := make(map[string]int64)

	if patch.Status != nil {
		sets[fieldStatus] = string(*patch.Status)
	}

	for role, connected := range patch.Connected {
		sets[connectedField(role)] = encodeBool(connected)
	}

	if patch.Game != nil {
		game, err := json.Marshal(patch.Game)
		if err != nil {
			return nil, nil, fmt.Errorf("could not marshal game: %w", err)
		}
		sets[fieldGame] = string(game)
	}

	delta := patch.ScoreDelta
	for field, by := range map[string]uint{
		fieldPlayer1Wins:  delta.Player1Wins,
		fieldPlayer2Wins:  delta.Player2Wins,
		fieldDraws:        delta.Draws,
		fieldTotalMatches: delta.TotalMatches,
	} {
		if by > 0 {
			increments[field] = int64(by)
		}
	}

	return sets, increments, nil
}

func decodeSession(fields map[string]string) (*entity.Session, error) {
	session := &entity.Session{
		Passcode: fields[fieldPasscode],
		Status:   entity.Status(fields[fieldStatus]),
		Players: entity.Players{
			Player1: entity.PlayerState{Connected: fields[fieldPlayer1] == connectedFieldTrue},
			Player2: entity.PlayerState{Connected: fields[fieldPlayer2] == connectedFieldTrue},
		},
	}

	if raw := fields[fieldGame]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &session.Game); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game: %w", err)
		}
	}

	counters := []struct {
		field  string
		target *uint
	}{
		{fieldPlayer1Wins, &session.Score.Player1Wins},
		{fieldPlayer2Wins, &session.Score.Player2Wins},
		{fieldDraws, &session.Score.Draws},
		{fieldTotalMatches, &session.Score.TotalMatches},
	}
	for _, counter := range counters {
		value, err := parseUint(fields[counter.field])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", counter.field, err)
		}
		*counter.target = value
	}

	if raw := fields[fieldCreatedAt]; raw != "" {
		createdAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldCreatedAt, err)
		}
		session.CreatedAt = createdAt
	}

	if raw := fields[fieldVersion]; raw != "" {
		version, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldVersion, err)
		}
		session.Version = version
	}

	return session, nil
}

func parseUint(raw string) (uint, error) {
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}

	return uint(value), nil
}
