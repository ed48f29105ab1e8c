// Package main runs the presence agent: it watches the device location
// against site geofences, signals presence, and keeps a live view of the
// selected site.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"presence-hub/internal/agent"
	"presence-hub/internal/httpclient"
	"presence-hub/internal/models"
	"presence-hub/internal/utils"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const siteRefreshInterval = 5 * time.Minute

// envLocator reports a fixed position from the environment. Real
// deployments swap in a platform locator at composition time.
type envLocator struct{}

func (envLocator) CurrentLocation(context.Context) (agent.Coords, error) {
	lat, errLat := strconv.ParseFloat(os.Getenv("AGENT_LATITUDE"), 64)
	lon, errLon := strconv.ParseFloat(os.Getenv("AGENT_LONGITUDE"), 64)
	if errLat != nil || errLon != nil {
		return agent.Coords{}, errors.New("no location fix available")
	}
	return agent.Coords{Latitude: lat, Longitude: lon}, nil
}

func main() {
	godotenv.Load()

	hubURL := utils.GetEnvOrDefault("HUB_URL", "http://localhost:3001")
	userID := os.Getenv("AGENT_USER_ID")
	displayName := utils.GetEnvOrDefault("AGENT_USER_NAME", userID)
	if userID == "" {
		logrus.Fatal("AGENT_USER_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := httpclient.NewHTTPClientManager()
	client := agent.NewClient(manager, hubURL, userID, displayName)

	session := agent.NewSession(client,
		func(siteID string, view []models.Presence) {
			logrus.WithFields(logrus.Fields{
				"site":  siteID,
				"users": len(view),
			}).Info("Presence view updated")
			for _, p := range view {
				marker := " "
				if p.CurrentlyPresent {
					marker = "*"
				}
				fmt.Printf("  %s %s (%d announcements)\n", marker, p.DisplayName, len(p.Announcements))
			}
		},
		func(state agent.SessionState) {
			logrus.Infof("Session state: %s", state)
		},
	)
	defer session.Close()

	monitor := agent.NewLocationMonitor(envLocator{}, session)

	// Headless agent: permission is granted by running the binary.
	if err := monitor.RequestPermission(); err != nil {
		logrus.Fatalf("Permission request failed: %v", err)
	}
	if err := monitor.PermissionResult(true); err != nil {
		logrus.Fatalf("Permission grant failed: %v", err)
	}

	sites, err := refreshGeofences(ctx, client, monitor)
	if err != nil {
		logrus.Fatalf("Failed to load sites: %v", err)
	}

	if err := monitor.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start location monitor: %v", err)
	}
	defer monitor.Stop()

	if siteID := os.Getenv("AGENT_SITE_ID"); siteID != "" {
		session.SelectSite(siteID)
	} else if len(sites) > 0 {
		session.SelectSite(sites[0].ID)
	}

	go func() {
		ticker := time.NewTicker(siteRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := refreshGeofences(ctx, client, monitor); err != nil {
					logrus.WithError(err).Warn("Site refresh failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logrus.Infof("Received signal: %v, shutting down agent", sig)
}

// refreshGeofences pulls the site list and re-installs the geofences.
func refreshGeofences(ctx context.Context, client *agent.Client, monitor *agent.LocationMonitor) ([]models.Site, error) {
	sites, err := client.GetSites(ctx)
	if err != nil {
		return nil, err
	}

	circles := make([]agent.GeoCircle, 0, len(sites))
	for _, site := range sites {
		circles = append(circles, agent.GeoCircle{
			SiteID: site.ID,
			Center: agent.Coords{
				Latitude:  site.Latitude,
				Longitude: site.Longitude,
			},
			RadiusMeters: agent.DefaultGeofenceRadiusMeters,
		})
	}
	monitor.SetGeofences(circles)

	logrus.WithField("sites", len(sites)).Debug("Geofences installed")
	return sites, nil
}
