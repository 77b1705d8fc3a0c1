package userstore

import (
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
)

func isDupKey(err error) bool {
	return wafflemongo.IsDup(err)
}
