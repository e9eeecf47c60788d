/*
Package session tracks live runs by ID so external surfaces (HTTP,
CLI) can address controllers across requests. It holds in-process
state only; runs do not survive a restart.
*/
package session
