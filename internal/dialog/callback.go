package dialog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedCallback is returned for button payloads this bot never issued.
var ErrMalformedCallback = errors.New("malformed callback data")

// ActionKind identifies what a button press asks for.
type ActionKind int

const (
	ActionCategory ActionKind = iota + 1
	ActionPage
	ActionPick
	ActionConfirm
	ActionCancel
)

// Action is a decoded button payload.
type Action struct {
	Kind       ActionKind
	Index      int
	Page       int
	ID         int64
	DeleteData bool
}

// Button payloads are limited to 64 bytes by the chat API; every form below
// stays well under that.

func CategoryData(index int) string { return "cat:" + strconv.Itoa(index) }

func PageData(page int) string { return "del:page:" + strconv.Itoa(page) }

func PickData(id int64) string { return "del:pick:" + strconv.FormatInt(id, 10) }

func ConfirmData(id int64, deleteData bool) string {
	flag := "0"
	if deleteData {
		flag = "1"
	}

	return "del:ok:" + strconv.FormatInt(id, 10) + ":" + flag
}

const CancelData = "cancel"

// ParseCallback decodes data produced by the constructors above.
func ParseCallback(data string) (Action, error) {
	if data == CancelData {
		return Action{Kind: ActionCancel}, nil
	}

	parts := strings.Split(data, ":")

	switch {
	case len(parts) == 2 && parts[0] == "cat":
		index, err := strconv.Atoi(parts[1])
		if err != nil || index < 0 {
			break
		}

		return Action{Kind: ActionCategory, Index: index}, nil
	case len(parts) == 3 && parts[0] == "del" && parts[1] == "page":
		page, err := strconv.Atoi(parts[2])
		if err != nil || page < 0 {
			break
		}

		return Action{Kind: ActionPage, Page: page}, nil
	case len(parts) == 3 && parts[0] == "del" && parts[1] == "pick":
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			break
		}

		return Action{Kind: ActionPick, ID: id}, nil
	case len(parts) == 4 && parts[0] == "del" && parts[1] == "ok":
		id, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || (parts[3] != "0" && parts[3] != "1") {
			break
		}

		return Action{Kind: ActionConfirm, ID: id, DeleteData: parts[3] == "1"}, nil
	}

	return Action{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
}
