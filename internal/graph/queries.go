package graph

// Cypher statements for the media graph:
//
//	(:MediaPlatform {name}) -[:HAS_CONTENT]-> (:MediaContent {contentId, platform})
//	(:MediaContent) -[:HAS_KEYWORD]-> (:MediaKeyword {name})
//	(:MediaContent) -[:HAS_COMMENT]-> (:MediaComment {commentId, platform})
//
// and the news graph:
//
//	(:Website {domain}) -[:HAS_CHANNEL]-> (:Channel {nodeId})
//	(:Channel) -[:CONTAINS]-> (:Article {contId})
//	(:Article) -[:HAS_TAG]-> (:Tag {tagId})
//
// Node identity is the MERGE key only; every other property is SET on
// each pass.
const (
	MergePlatformQuery = `
		MERGE (p:MediaPlatform {name: $name})
		SET p.displayName = $displayName,
			p.updatedAt = datetime()
		RETURN p
	`

	MergeContentQuery = `
		MERGE (c:MediaContent {contentId: $contentId, platform: $platform})
		SET c.contentType = $contentType,
			c.title = $title,
			c.author = $author,
			c.authorId = $authorId,
			c.url = $url,
			c.createTime = $createTime,
			c.likedCount = $likedCount,
			c.commentCount = $commentCount,
			c.syncedAt = datetime()
		WITH c
		MATCH (p:MediaPlatform {name: $platform})
		MERGE (p)-[:HAS_CONTENT]->(c)
		RETURN c
	`

	MergeKeywordQuery = `
		MERGE (k:MediaKeyword {name: $name})
		WITH k
		MATCH (c:MediaContent {contentId: $contentId, platform: $platform})
		MERGE (c)-[:HAS_KEYWORD]->(k)
		RETURN k
	`

	MergeCommentQuery = `
		MERGE (cm:MediaComment {commentId: $commentId, platform: $platform})
		SET cm.content = $content,
			cm.author = $author,
			cm.authorId = $authorId,
			cm.createTime = $createTime,
			cm.likedCount = $likedCount
		WITH cm
		MATCH (c:MediaContent {contentId: $contentId, platform: $platform})
		MERGE (c)-[:HAS_COMMENT]->(cm)
		RETURN cm
	`

	MergeWebsiteQuery = `
		MERGE (w:Website {domain: $domain})
		SET w.name = $name
		RETURN w
	`

	MergeChannelQuery = `
		MERGE (c:Channel {nodeId: $nodeId})
		SET c.name = $name, c.desc = $desc
		WITH c
		MATCH (w:Website {domain: $domain})
		MERGE (w)-[:HAS_CHANNEL]->(c)
		RETURN c
	`

	MergeArticleQuery = `
		MERGE (a:Article {contId: $contId})
		SET a.title = $title,
			a.author = $author,
			a.url = $url,
			a.summary = $summary,
			a.pubTime = $pubTime,
			a.taskId = $taskId
		WITH a
		MATCH (c:Channel {nodeId: $channelId})
		MERGE (c)-[:CONTAINS]->(a)
		RETURN a
	`

	MergeTagQuery = `
		MERGE (t:Tag {tagId: $tagId})
		SET t.name = $name
		WITH t
		MATCH (a:Article {contId: $contId})
		MERGE (a)-[:HAS_TAG]->(t)
		RETURN t
	`

	SubgraphAllQuery = `
		MATCH (p:MediaPlatform)-[:HAS_CONTENT]->(c:MediaContent)
		OPTIONAL MATCH (c)-[:HAS_KEYWORD]->(k:MediaKeyword)
		OPTIONAL MATCH (c)-[:HAS_COMMENT]->(cm:MediaComment)
		RETURN p, c, collect(DISTINCT k) AS keywords, count(DISTINCT cm) AS commentCount
		LIMIT $limit
	`

	SubgraphByPlatformQuery = `
		MATCH (p:MediaPlatform {name: $platform})-[:HAS_CONTENT]->(c:MediaContent)
		OPTIONAL MATCH (c)-[:HAS_KEYWORD]->(k:MediaKeyword)
		OPTIONAL MATCH (c)-[:HAS_COMMENT]->(cm:MediaComment)
		RETURN p, c, collect(DISTINCT k) AS keywords, count(DISTINCT cm) AS commentCount
		LIMIT $limit
	`

	SubgraphByKeywordQuery = `
		MATCH (k:MediaKeyword)<-[:HAS_KEYWORD]-(c:MediaContent)<-[:HAS_CONTENT]-(p:MediaPlatform)
		WHERE toLower(k.name) = toLower($keyword)
		OPTIONAL MATCH (c)-[:HAS_KEYWORD]->(k2:MediaKeyword)
		OPTIONAL MATCH (c)-[:HAS_COMMENT]->(cm:MediaComment)
		RETURN p, c, collect(DISTINCT k2) AS keywords, count(DISTINCT cm) AS commentCount
		LIMIT $limit
	`

	SubgraphByPlatformAndKeywordQuery = `
		MATCH (k:MediaKeyword)<-[:HAS_KEYWORD]-(c:MediaContent {platform: $platform})<-[:HAS_CONTENT]-(p:MediaPlatform)
		WHERE toLower(k.name) = toLower($keyword)
		OPTIONAL MATCH (c)-[:HAS_KEYWORD]->(k2:MediaKeyword)
		OPTIONAL MATCH (c)-[:HAS_COMMENT]->(cm:MediaComment)
		RETURN p, c, collect(DISTINCT k2) AS keywords, count(DISTINCT cm) AS commentCount
		LIMIT $limit
	`

	TaskGraphQuery = `
		MATCH (c:Channel)-[:CONTAINS]->(a:Article {taskId: $taskId})
		OPTIONAL MATCH (a)-[:HAS_TAG]->(t:Tag)
		RETURN c, a, collect(DISTINCT t) AS tags
	`

	PopularKeywordsAllQuery = `
		MATCH (c:MediaContent)-[:HAS_KEYWORD]->(k:MediaKeyword)
		RETURN k.name AS name, count(c) AS count
		ORDER BY count DESC
		LIMIT $limit
	`

	PopularKeywordsByPlatformQuery = `
		MATCH (c:MediaContent {platform: $platform})-[:HAS_KEYWORD]->(k:MediaKeyword)
		RETURN k.name AS name, count(c) AS count
		ORDER BY count DESC
		LIMIT $limit
	`

	PopularTagsAllQuery = `
		MATCH (a:Article)-[:HAS_TAG]->(t:Tag)
		RETURN t.tagId AS tagId, t.name AS name, count(a) AS count
		ORDER BY count DESC
		LIMIT $limit
	`

	PopularTagsByTaskQuery = `
		MATCH (a:Article {taskId: $taskId})-[:HAS_TAG]->(t:Tag)
		RETURN t.tagId AS tagId, t.name AS name, count(a) AS count
		ORDER BY count DESC
		LIMIT $limit
	`

	SearchKeywordsQuery = `
		MATCH (k:MediaKeyword)
		WHERE toLower(k.name) CONTAINS toLower($query)
		OPTIONAL MATCH (c:MediaContent)-[:HAS_KEYWORD]->(k)
		RETURN k.name AS name, count(c) AS count
		ORDER BY count DESC
		LIMIT $limit
	`

	SearchNodesQuery = `
		CALL {
			MATCH (a:Article)
			WHERE toLower(a.title) CONTAINS toLower($query)
			RETURN a.contId AS id, 'Article' AS type, a.title AS label, a AS node
			UNION
			MATCH (t:Tag)
			WHERE toLower(t.name) CONTAINS toLower($query)
			RETURN toString(t.tagId) AS id, 'Tag' AS type, t.name AS label, t AS node
		}
		RETURN id, type, label, properties(node) AS properties
		LIMIT $limit
	`
)
