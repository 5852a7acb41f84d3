package ingest

import (
	"errors"

	"kkfeed/internal/config"
	"kkfeed/internal/models"
	"kkfeed/internal/store"
)

// ReadStore returns the items of a category in stored order. Print parts are
// concatenated in part order. Unlike a run, unreadable documents are errors.
func ReadStore(cfg config.AppConfig, cat models.Category) ([]models.Item, error) {
	if cat == models.Print {
		o, errs := store.LoadParts(cfg.PrintPrefix())
		if len(errs) > 0 {
			return o.Items(), errors.Join(errs...)
		}
		return o.Items(), nil
	}
	o, err := store.LoadDocument(cfg.DocumentPath(cat))
	return o.Items(), err
}
