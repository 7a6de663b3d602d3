// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/maruel/go-thermo/api"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Seeder pushes measurements to a remote collector.
type Seeder struct {
	config PushConfig
	client *http.Client
	items  chan api.PushRequestItem
	log    logrus.FieldLogger

	mu    sync.Mutex
	stats SeederStats
}

// SeederStats are cumulative counters.
type SeederStats struct {
	ItemsSent    int
	ItemsDropped int
	HTTPReqs     int
	HTTPFails    int
}

// newSeeder returns nil if c is incomplete.
func newSeeder(c PushConfig) *Seeder {
	if !c.isValid() {
		return nil
	}
	s := &Seeder{
		config: c,
		client: &http.Client{},
		items:  make(chan api.PushRequestItem, 64),
		log:    logrus.WithField("component", "seeder"),
	}
	s.log.Infof("Sending to %s as ID %d", c.Server, c.ID)
	return s
}

// Stats returns a snapshot of the counters.
func (s *Seeder) Stats() SeederStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// push queues an item. It never blocks; the item is dropped if the queue is
// full.
func (s *Seeder) push(i api.PushRequestItem) {
	select {
	case s.items <- i:
	default:
		s.mu.Lock()
		s.stats.ItemsDropped++
		s.mu.Unlock()
	}
}

// run sends the queued items until ctx is done.
func (s *Seeder) run(ctx context.Context) {
	items := make([]api.PushRequestItem, 0, 30)
	for {
		items = items[:0]
		select {
		case i := <-s.items:
			items = append(items, i)
		case <-ctx.Done():
			return
		}
		// Do not send more than 30 items at a time.
		for loop := true; loop && len(items) < 30; {
			select {
			case i := <-s.items:
				items = append(items, i)
			default:
				loop = false
			}
		}
		err := s.send(ctx, items)
		s.mu.Lock()
		s.stats.HTTPReqs++
		if err != nil {
			s.stats.HTTPFails++
		} else {
			s.stats.ItemsSent += len(items)
		}
		s.mu.Unlock()
		if err != nil {
			s.log.WithError(err).Warnf("failed to push %d items", len(items))
		}
	}
}

func (s *Seeder) send(ctx context.Context, items []api.PushRequestItem) error {
	req := &api.PushRequest{
		ID:     s.config.ID,
		Secret: []byte(s.config.Secret),
		Items:  items,
	}
	var w bytes.Buffer
	if err := json.NewEncoder(&w).Encode(req); err != nil {
		return err
	}
	r, err := http.NewRequestWithContext(ctx, "POST", s.url(), &w)
	if err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	out := api.PushResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return errors.Wrapf(err, "status %d", resp.StatusCode)
	}
	if !out.OK {
		return errors.Errorf("status %d: %s", resp.StatusCode, out.Error)
	}
	return nil
}

func (s *Seeder) url() string {
	base := s.config.Server
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return strings.TrimSuffix(base, "/") + "/api/thermo/v1/push"
}
