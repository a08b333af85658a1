package config

import "time"

type CookieConfig interface {
	GetAccessTokenMaxAge() time.Duration
	GetRefreshTokenMaxAge() time.Duration
	GetClockSessionMaxAge() time.Duration
}

type Cookies struct{}

var _ CookieConfig = Cookies{}

func (Cookies) GetAccessTokenMaxAge() time.Duration {
	return 30 * time.Minute
}

func (Cookies) GetRefreshTokenMaxAge() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

func (Cookies) GetClockSessionMaxAge() time.Duration {
	return 8 * time.Hour // one kiosk shift
}
