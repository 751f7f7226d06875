package reco

import (
	"context"
	"log/slog"

	"moovstream/recoservice/internal/domain"
)

// maxAlternateScan bounds the fallback search: at most the seven candidates
// ranked directly below the top pick are probed.
const maxAlternateScan = 7

// matchStreamingService reconciles the chosen candidate with the desired
// streaming service. The scan over alternates is sequential on purpose: it
// stops at the first flatrate match and keeps the request fan-out bounded.
// When an alternate wins, its credits are fetched and returned alongside it;
// when nothing matches, the original pick stands with its original providers.
func (s *Service) matchStreamingService(
	ctx context.Context,
	ranked []domain.Movie,
	chosen domain.Movie,
	chosenProviders domain.ProviderInfo,
	service string,
) (domain.Movie, domain.ProviderInfo, *domain.Credits, int, error) {
	wanted := Normalize(service)
	if wanted == "" || hasFlatrate(chosenProviders, wanted) {
		return chosen, chosenProviders, nil, 0, nil
	}

	scanned := 0
	for _, alt := range alternates(ranked) {
		scanned++
		altProviders, err := s.meta.WatchProviders(ctx, alt.ID, s.region)
		if err != nil {
			return domain.Movie{}, domain.ProviderInfo{}, nil, scanned, err
		}
		if !hasFlatrate(altProviders, wanted) {
			continue
		}

		altCredits, err := s.meta.Credits(ctx, alt.ID)
		if err != nil {
			return domain.Movie{}, domain.ProviderInfo{}, nil, scanned, err
		}
		s.logger.Debug("streaming service matched on alternate candidate",
			slog.Int64("movieID", alt.ID),
			slog.Int("position", scanned),
			slog.String("service", wanted),
		)
		return alt, altProviders, &altCredits, scanned, nil
	}

	// No alternate carries the service; the top pick is used regardless.
	return chosen, chosenProviders, nil, scanned, nil
}

// alternates returns ranked positions 1..maxAlternateScan (the top pick is
// skipped).
func alternates(ranked []domain.Movie) []domain.Movie {
	if len(ranked) <= 1 {
		return nil
	}
	rest := ranked[1:]
	if len(rest) > maxAlternateScan {
		rest = rest[:maxAlternateScan]
	}
	return rest
}

func hasFlatrate(info domain.ProviderInfo, normalizedService string) bool {
	for _, name := range info.Flatrate {
		if Normalize(name) == normalizedService {
			return true
		}
	}
	return false
}
