package api

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxK sets the largest k accepted by GET /trends.
func WithMaxK(maxK int) Option {
	return func(s *Server) {
		if maxK > 0 {
			s.trendsHandler.maxK = maxK
		}
	}
}

// WithMaxTermLength sets the longest term accepted by POST /messages.
func WithMaxTermLength(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.messagesHandler.maxTermLength = n
		}
	}
}
