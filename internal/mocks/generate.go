package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Feed --dir ../domain/match --output domain/match --outpkg matchmock --filename feed_mock.go
