package services

import "errors"

var (
	ErrLoadNotFound        = errors.New("no load with this load_id exists")
	ErrBoatNotFound        = errors.New("no boat with this boat_id exists")
	ErrLoadAlreadyAssigned = errors.New("the load is already loaded on another boat")
	ErrLoadNotOnBoat       = errors.New("no boat with this boat_id is loaded with the load with this load_id")
	ErrInvalidCursor       = errors.New("invalid cursor")
)
