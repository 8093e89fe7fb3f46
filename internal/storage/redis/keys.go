package redis

import (
	"fmt"

	"github.com/mcoot/playfield/internal/model"
)

// Key prefix for all playfield data
const keyPrefix = "playfield"

// playerKey returns the Redis key for a Player row
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// playerOrderKey returns the ZSET ordering rows by insertion sequence
func playerOrderKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// sequenceKey returns the counter used to score the order index
func sequenceKey() string {
	return fmt.Sprintf("%s:seq:players", keyPrefix)
}

// changesChannel returns the pub/sub channel carrying the players change feed
func changesChannel() string {
	return fmt.Sprintf("%s:players:changes", keyPrefix)
}
