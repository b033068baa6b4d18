package lsp

import "context"

func SetBeforeQuery(s *Server, f func(context.Context)) {
	s.beforeQuery = f
}
