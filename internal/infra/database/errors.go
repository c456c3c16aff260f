package database

import "fmt"

// Custom errors
var ErrSubscriberNotFound = fmt.Errorf("subscriber not found")
var ErrDuplicateTelegramID = fmt.Errorf("subscriber with this Telegram ID already exists")
