package session

type Option interface {
	apply(*Session)
}

type OptionDialer struct {
	Dialer
}

func (opt OptionDialer) apply(s *Session) {
	s.dialer = opt.Dialer
}

type OptionID string

func (opt OptionID) apply(s *Session) {
	s.ID = string(opt)
}
