/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/bingobox/bingo"
)

const qrSize = 320

// joinURL is the address players scan to reach the session, derived from
// the request so it survives reverse proxies.
func joinURL(cfg *Config, r *http.Request, path string) string {
	scheme := cfg.scheme()
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + path
}

func serveQR(cfg *Config, path string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		url := joinURL(cfg, r, path)

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			reportErr(errs, err)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			reportErr(errs, err)

			return
		}

		logf(cfg, "SERVE: QR code for %s (%s) to %s in %s",
			url,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// registerBingoGame sets up routes so that:
//   - $path/ws → websocket shared by the host, the big screen and players
//   - $path/qr → PNG QR code pointing players at $path
func registerBingoGame(cfg *Config, path string, hub *bingo.Hub, mux *httprouter.Router, errs chan<- error) {
	path = "/" + strings.Trim(path, "/")

	mux.GET(cfg.prefix+path+"/ws", bingo.ServeWS(hub, cfg.sendBuffer))

	mux.GET(cfg.prefix+path+"/qr", serveQR(cfg, path, errs))
}
