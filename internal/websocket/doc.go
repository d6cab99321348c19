// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

/*
Package websocket pushes change notifications to connected browsers.

A client connects at /api/v1/ws and then joins topics:

	{"type":"subscribe","data":{"topic":"tweet_8d1c..."}}
	{"type":"unsubscribe","data":{"topic":"tweet_8d1c..."}}
	{"type":"ping"}

Accepted topics are user_<id>, tweet_<id> and bookmarks_<id>; a client may
only join the bookmarks topic of its own user. Events arrive as

	{"type":"TweetLiked","topic":"tweet_8d1c...","data":{"tweetId":"8d1c...","likeCount":3}}

The Hub loop handles shutdown first, then client registration, then
broadcasts. Clients are visited in connection order. A client whose send
buffer is full is disconnected rather than allowed to stall the hub.

Hub implements notify.Broadcaster and suture.Service.
*/
package websocket
