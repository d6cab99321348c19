// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package models

import "github.com/tomtom215/warbler/internal/idset"

// FollowEdge is the edge follower -> followee.
func FollowEdge(follower, followee *User) idset.Edge {
	return idset.Edge{
		Out:   &follower.Following,
		OutID: follower.ID,
		In:    &followee.Followers,
		InID:  followee.ID,
	}
}

// LikeEdge is the edge user -> tweet for likes.
func LikeEdge(ix *EngagementIndex, t *Tweet) idset.Edge {
	return idset.Edge{
		Out:   &ix.LikedTweetIDs,
		OutID: ix.UserID,
		In:    &t.LikerIDs,
		InID:  t.ID,
	}
}

// RetweetEdge is the edge user -> tweet for retweets.
func RetweetEdge(ix *EngagementIndex, t *Tweet) idset.Edge {
	return idset.Edge{
		Out:   &ix.RetweetedTweetIDs,
		OutID: ix.UserID,
		In:    &t.RetweeterIDs,
		InID:  t.ID,
	}
}
