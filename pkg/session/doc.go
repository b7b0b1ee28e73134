/*
Package session serialises operations on the flow of each subscription.

Two browser tabs editing the same subscription would otherwise race on storage, each
overwriting the other's answers. The Manager holds a reference-counted mutex per
subscription id and, when configured with a ports.DistributedLocker, a lock shared by
every instance.
*/
package session
