package util

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/user_agent"
)

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

func RandomLowerAlphaNumString(n int) string {
	const lowerAlphaNum = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = lowerAlphaNum[seededRand.Intn(len(lowerAlphaNum))]
	}
	return string(b)
}

func GetUUID() string {
	return uuid.New().String()
}

func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func TimeNowZ() time.Time {
	return time.Now().UTC()
}

// TimeNowISO returns current UTC time in the RFC3339 form
// expected by the collector's timestamp field.
func TimeNowISO() string {
	return TimeNowZ().Format(time.RFC3339)
}

func StringValueIn(value string, list []string) bool {
	for i := range list {
		if list[i] == value {
			return true
		}
	}
	return false
}

func Int64ValueIn(value int64, list []int64) bool {
	for i := range list {
		if list[i] == value {
			return true
		}
	}
	return false
}

// IsBotUserAgent - Crawler requests should not generate
// analytics events.
func IsBotUserAgent(agent string) bool {
	if agent == "" {
		return false
	}
	return user_agent.New(agent).Bot()
}

func TrimAndLower(str string) string {
	return strings.ToLower(strings.TrimSpace(str))
}
